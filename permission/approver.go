package permission

import "context"

// Request carries everything an approver needs to decide on one call.
type Request struct {
	CallID      string
	ToolName    string
	Arguments   map[string]any
	RiskLevel   string
	RiskReason  string
	Description string
}

// Decision is an approver's answer. A nil Decision is treated as a
// denial by the engine.
type Decision struct {
	Approved bool
	Reason   string
}

// Approver supplies decisions for calls that need one. Implementations
// may block on human interaction; the engine bounds the wait with the
// policy's decision timeout.
type Approver interface {
	Decide(ctx context.Context, req Request) (*Decision, error)
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(ctx context.Context, req Request) (*Decision, error)

func (f ApproverFunc) Decide(ctx context.Context, req Request) (*Decision, error) {
	return f(ctx, req)
}
