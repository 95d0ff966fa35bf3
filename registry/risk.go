package registry

import "fmt"

// RiskLevel classifies the blast radius of a tool.
type RiskLevel int

const (
	RiskSafe      RiskLevel = iota // no side effects
	RiskCaution                    // reversible side effects
	RiskDangerous                  // irreversible or high-impact side effects
)

func (r RiskLevel) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskCaution:
		return "caution"
	case RiskDangerous:
		return "dangerous"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

// ParseRiskLevel converts a string to a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "safe":
		return RiskSafe, nil
	case "caution":
		return RiskCaution, nil
	case "dangerous":
		return RiskDangerous, nil
	default:
		return 0, fmt.Errorf("unknown risk level: %q", s)
	}
}

// Assessment is a per-invocation risk verdict. The level reflects the
// actual arguments, not just the tool's registered tier.
type Assessment struct {
	Level  RiskLevel
	Reason string
}

// Assessor computes risk from a specific invocation's arguments.
// The registry combines its result with the tool's static tier: the
// static tier is a floor, an assessor can only raise it.
type Assessor func(args map[string]any) Assessment
