package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"toolgate/audit"
	"toolgate/registry"
	"toolgate/tools"
)

// Executor runs an approved tool call.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any) (tools.Result, error)
}

// Engine drives a tool call through its lifecycle:
// PENDING -> EXECUTING (approved) or DENIED, EXECUTING -> SUCCESS or
// ERROR. Denials and errors still produce a result payload so the model
// can see why and adapt. Decisions fail closed: a missing approver, a
// nil decision, an approver error, or a timeout all deny the call.
type Engine struct {
	registry  *registry.Registry
	exec      Executor
	policy    *Policy
	cache     *SessionCache
	approver  Approver
	sink      audit.Sink
	logger    *zap.Logger
	sessionID string
}

// NewEngine creates an approval engine. approver may be nil, in which
// case every call that needs a decision is denied.
func NewEngine(reg *registry.Registry, exec Executor, policy *Policy, approver Approver, sink audit.Sink, logger *zap.Logger, sessionID string) *Engine {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if policy.AutoApprove {
		logger.Warn("auto-approve is enabled: every tool call bypasses approval",
			zap.String("session_id", sessionID),
		)
	}
	return &Engine{
		registry:  reg,
		exec:      exec,
		policy:    policy,
		cache:     NewSessionCache(),
		approver:  approver,
		sink:      sink,
		logger:    logger,
		sessionID: sessionID,
	}
}

// ClearSession forgets once-per-session approvals.
func (e *Engine) ClearSession() {
	e.cache.Clear()
}

// Run takes a PENDING call to a terminal state. The returned error is
// non-nil only for infrastructure failures (an essential audit write
// failing); tool-level failures and denials land in call.Result.
func (e *Engine) Run(ctx context.Context, call *Call) error {
	if call.Status != StatusPending {
		return fmt.Errorf("call %s is %s, not PENDING", call.ID, call.Status)
	}

	preview, argsHash := audit.SerializeArgs(call.Arguments)
	assessment := e.registry.AssessRisk(call.Name, call.Arguments)

	if err := e.emit(audit.EventRequest, call, assessment, "", preview, argsHash, 0); err != nil {
		return err
	}

	// Unknown or disabled tools are denied before any approver sees
	// them; an approver cannot meaningfully vouch for an action that
	// does not exist.
	if _, ok := e.registry.Get(call.Name); !ok {
		return e.deny(call, assessment, fmt.Sprintf("tool not found: %s", call.Name), preview, argsHash)
	}
	if !e.registry.IsAllowed(call.Name) {
		return e.deny(call, assessment, fmt.Sprintf("tool disabled: %s", call.Name), preview, argsHash)
	}

	if err := e.registry.ValidateArgs(call.Name, call.Arguments); err != nil {
		return e.deny(call, assessment, fmt.Sprintf("invalid arguments: %v", err), preview, argsHash)
	}

	if e.policy.NeedsApproval(call.Name, e.cache) {
		decision := e.decide(ctx, call, assessment)
		if !decision.Approved {
			return e.deny(call, assessment, decision.Reason, preview, argsHash)
		}
		if e.policy.Mode == ModeOncePerSession {
			e.cache.Approve(call.Name)
		}
		if err := e.emit(audit.EventApproval, call, assessment, decision.Reason, preview, argsHash, 0); err != nil {
			return err
		}
	} else {
		reason := fmt.Sprintf("approved by policy (%s)", e.policy.Mode)
		if e.policy.AutoApprove {
			reason = "approved by auto-approve bypass"
		}
		if err := e.emit(audit.EventApproval, call, assessment, reason, preview, argsHash, 0); err != nil {
			return err
		}
	}

	call.Status = StatusExecuting
	if err := e.emit(audit.EventExecution, call, assessment, "", preview, argsHash, 0); err != nil {
		return err
	}

	start := time.Now()
	result, err := e.exec.Execute(ctx, call.Name, call.Arguments)
	elapsed := time.Since(start)

	if err != nil {
		call.Status = StatusError
		call.Result = fmt.Sprintf("execution failed: %v", err)
		call.IsError = true
		e.emitBestEffort(audit.EventError, call, assessment, call.Result, preview, argsHash, elapsed)
		return nil
	}

	call.Result = result.Content
	if result.IsError {
		call.Status = StatusError
		call.IsError = true
		e.emitBestEffort(audit.EventError, call, assessment, result.Content, preview, argsHash, elapsed)
		return nil
	}

	call.Status = StatusSuccess
	e.emitBestEffort(audit.EventResult, call, assessment, "", preview, argsHash, elapsed)
	return nil
}

// DenyCall denies a pending call outright with the given reason,
// recording the request and denial events. Used for calls that are
// malformed before policy even applies, e.g. unparseable streamed
// arguments.
func (e *Engine) DenyCall(call *Call, reason string) error {
	if call.Status != StatusPending {
		return fmt.Errorf("call %s is %s, not PENDING", call.ID, call.Status)
	}
	preview, argsHash := audit.SerializeArgs(call.Arguments)
	assessment := e.registry.AssessRisk(call.Name, call.Arguments)
	if err := e.emit(audit.EventRequest, call, assessment, "", preview, argsHash, 0); err != nil {
		return err
	}
	return e.deny(call, assessment, reason, preview, argsHash)
}

// decide obtains a decision, applying the fail-closed rules.
func (e *Engine) decide(ctx context.Context, call *Call, assessment registry.Assessment) Decision {
	if e.approver == nil {
		return Decision{Approved: false, Reason: "no approver configured"}
	}

	timeout := e.policy.DecisionTimeout
	if timeout <= 0 {
		timeout = DefaultDecisionTimeout
	}
	decideCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	decision, err := e.approver.Decide(decideCtx, Request{
		CallID:      call.ID,
		ToolName:    call.Name,
		Arguments:   call.Arguments,
		RiskLevel:   assessment.Level.String(),
		RiskReason:  assessment.Reason,
		Description: fmt.Sprintf("%s (%s)", call.Name, assessment.Level),
	})
	if err != nil {
		if decideCtx.Err() == context.DeadlineExceeded {
			return Decision{Approved: false, Reason: "approval timed out"}
		}
		return Decision{Approved: false, Reason: fmt.Sprintf("approver failed: %v", err)}
	}
	if decision == nil {
		return Decision{Approved: false, Reason: "approver returned no decision"}
	}
	if !decision.Approved && decision.Reason == "" {
		decision.Reason = "denied by approver"
	}
	return *decision
}

// deny transitions the call to DENIED and records the essential denial
// event.
func (e *Engine) deny(call *Call, assessment registry.Assessment, reason, preview, argsHash string) error {
	call.Status = StatusDenied
	call.Result = fmt.Sprintf("denied: %s", reason)
	call.IsError = true
	return e.emit(audit.EventDenial, call, assessment, reason, preview, argsHash, 0)
}

// emit records an event and propagates sink failure for essential
// types.
func (e *Engine) emit(typ audit.EventType, call *Call, assessment registry.Assessment, reason, preview, argsHash string, dur time.Duration) error {
	err := e.sink.Record(e.event(typ, call, assessment, reason, preview, argsHash, dur))
	if err == nil {
		return nil
	}
	if typ.Essential() {
		call.Status = StatusError
		call.Result = fmt.Sprintf("audit log unavailable: %v", err)
		call.IsError = true
		return fmt.Errorf("record %s event: %w", typ, err)
	}
	e.logger.Warn("audit record failed",
		zap.String("type", string(typ)),
		zap.String("call_id", call.ID),
		zap.Error(err),
	)
	return nil
}

// emitBestEffort never fails the call; used after the side effect has
// already committed.
func (e *Engine) emitBestEffort(typ audit.EventType, call *Call, assessment registry.Assessment, errText, preview, argsHash string, dur time.Duration) {
	ev := e.event(typ, call, assessment, "", preview, argsHash, dur)
	ev.Error = errText
	if err := e.sink.Record(ev); err != nil {
		e.logger.Warn("audit record failed",
			zap.String("type", string(typ)),
			zap.String("call_id", call.ID),
			zap.Error(err),
		)
	}
}

func (e *Engine) event(typ audit.EventType, call *Call, assessment registry.Assessment, reason, preview, argsHash string, dur time.Duration) *audit.Event {
	return &audit.Event{
		ID:        uuid.NewString(),
		SessionID: e.sessionID,
		CallID:    call.ID,
		Type:      typ,
		Time:      time.Now().UTC(),
		Tool:      call.Name,
		Risk:      assessment.Level.String(),
		Arguments: preview,
		ArgsHash:  argsHash,
		Reason:    reason,
		Duration:  float64(dur.Microseconds()) / 1000.0,
	}
}
