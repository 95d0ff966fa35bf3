package permission

import "fmt"

// Status is the lifecycle state of a tool call.
type Status int

const (
	StatusPending Status = iota
	StatusExecuting
	StatusSuccess
	StatusError
	StatusDenied
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusExecuting:
		return "EXECUTING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	case StatusDenied:
		return "DENIED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusDenied
}

// Call is one proposed tool invocation moving through the approval
// state machine. The engine owns all transitions.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
	Status    Status
	Result    string // tool output, error text, or denial reason
	IsError   bool
}
