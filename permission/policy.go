package permission

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode governs when a tool call needs an explicit approval decision.
type Mode int

const (
	// ModeAlways requires a decision for every call.
	ModeAlways Mode = iota
	// ModeOncePerSession requires a decision the first time a tool is
	// used in a session; later calls to the same tool are pre-approved.
	ModeOncePerSession
	// ModeWhitelist exempts the listed tools; everything else needs a
	// decision.
	ModeWhitelist
)

func (m Mode) String() string {
	switch m {
	case ModeAlways:
		return "ALWAYS"
	case ModeOncePerSession:
		return "ONCE_PER_SESSION"
	case ModeWhitelist:
		return "WHITELIST"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a config string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "ALWAYS", "always":
		return ModeAlways, nil
	case "ONCE_PER_SESSION", "once_per_session":
		return ModeOncePerSession, nil
	case "WHITELIST", "whitelist":
		return ModeWhitelist, nil
	default:
		return ModeAlways, fmt.Errorf("unknown approval mode %q", s)
	}
}

// DefaultDecisionTimeout bounds how long the engine waits for an
// approver before failing closed.
const DefaultDecisionTimeout = 5 * time.Minute

// Policy is the process-scoped approval configuration.
type Policy struct {
	Mode            Mode
	AllowedTools    map[string]bool // consulted only under ModeWhitelist
	AutoApprove     bool            // global bypass; engine warns loudly when set
	DecisionTimeout time.Duration
}

// DefaultPolicy requires a decision for every call.
func DefaultPolicy() *Policy {
	return &Policy{
		Mode:            ModeAlways,
		AllowedTools:    map[string]bool{},
		DecisionTimeout: DefaultDecisionTimeout,
	}
}

// NeedsApproval reports whether a call to the named tool requires an
// explicit decision under this policy and session cache state. Pure
// given the policy and cache contents.
func (p *Policy) NeedsApproval(name string, cache *SessionCache) bool {
	if p.AutoApprove {
		return false
	}
	switch p.Mode {
	case ModeWhitelist:
		return !p.AllowedTools[name]
	case ModeOncePerSession:
		return cache == nil || !cache.IsApproved(name)
	default:
		return true
	}
}

type policyFile struct {
	Mode            string   `yaml:"mode"`
	AllowedTools    []string `yaml:"allowed_tools"`
	AutoApprove     bool     `yaml:"auto_approve"`
	DecisionTimeout string   `yaml:"decision_timeout"`
}

// LoadPolicy reads a policy from a YAML file. A missing file yields the
// default policy.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	p := DefaultPolicy()
	if pf.Mode != "" {
		mode, err := ParseMode(pf.Mode)
		if err != nil {
			return nil, err
		}
		p.Mode = mode
	}
	for _, name := range pf.AllowedTools {
		p.AllowedTools[name] = true
	}
	p.AutoApprove = pf.AutoApprove
	if pf.DecisionTimeout != "" {
		d, err := time.ParseDuration(pf.DecisionTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse decision_timeout: %w", err)
		}
		p.DecisionTimeout = d
	}
	return p, nil
}
