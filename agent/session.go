// Package agent ties the pipeline together: it drives a conversation
// with a chat model, reassembles streamed responses, gates proposed
// tool calls through the approval engine, and feeds results back into
// the next model turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"toolgate/permission"
	"toolgate/registry"
	"toolgate/stream"
)

// ErrTurnInFlight is returned when a prompt arrives while a prior
// tool-calling round is still pending approval or execution.
var ErrTurnInFlight = errors.New("a tool-calling turn is already in flight")

// pollInterval is how often the consumer wakes to check cancellation
// while waiting for chunks.
const pollInterval = 50 * time.Millisecond

// Message is one entry of the conversation history.
type Message struct {
	Role    string // "user", "assistant", or "tool"
	Text    string
	Calls   []stream.ToolCall // assistant tool proposals
	CallID  string            // correlates a tool result to its call
	IsError bool
}

// ModelClient starts one streamed model turn. Implementations run the
// blocking transport on the calling goroutine and hand chunks to the
// pump, finishing or failing it exactly once. Emit returning false
// means the consumer cancelled; the client must stop.
type ModelClient interface {
	Stream(ctx context.Context, history []Message, tools []registry.FunctionSpec, pump *stream.Pump)
}

// Session is one conversation. Within a session only one prompt is
// processed at a time; concurrent sessions are independent.
type Session struct {
	id       string
	client   ModelClient
	registry *registry.Registry
	engine   *permission.Engine
	guard    *stream.LoopGuard
	logger   *zap.Logger

	mu       sync.Mutex
	history  []Message
	inFlight bool
	cancel   context.CancelFunc
}

// NewSession creates a session with a fresh loop guard and empty
// history.
func NewSession(client ModelClient, reg *registry.Registry, eng *permission.Engine, maxIterations int, logger *zap.Logger) *Session {
	return &Session{
		id:       uuid.NewString(),
		client:   client,
		registry: reg,
		engine:   eng,
		guard:    stream.NewLoopGuard(maxIterations),
		logger:   logger,
	}
}

// SessionID returns the unique session identifier.
func (s *Session) SessionID() string {
	return s.id
}

// Cancel cooperatively stops the prompt currently in flight, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// History returns a copy of the conversation so far.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message{}, s.history...)
}

// Prompt sends a user message and runs the tool loop until the model
// answers without tool calls, the loop guard aborts, or the context is
// cancelled. Returns the final assistant text; on cancellation, partial
// text accumulated so far comes back alongside the error.
func (s *Session) Prompt(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return "", ErrTurnInFlight
	}
	s.inFlight = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.history = append(s.history, Message{Role: "user", Text: text})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	s.guard.Reset()

	for {
		turn, err := s.streamTurn(ctx)
		if err != nil {
			return turn.Text, err
		}

		s.mu.Lock()
		s.history = append(s.history, Message{Role: "assistant", Text: turn.Text, Calls: turn.Calls})
		s.mu.Unlock()

		if len(turn.Calls) == 0 {
			return turn.Text, nil
		}

		if err := s.guard.Check(turn.Calls); err != nil {
			s.logger.Warn("tool loop aborted",
				zap.String("session_id", s.id),
				zap.Error(err),
			)
			return turn.Text, err
		}

		if err := s.runCalls(ctx, turn.Calls); err != nil {
			return turn.Text, err
		}
	}
}

// streamTurn consumes one model response. Cancellation between chunks
// stops consumption and preserves partial text.
func (s *Session) streamTurn(ctx context.Context) (stream.Turn, error) {
	pump := stream.NewPump(0)

	s.mu.Lock()
	history := append([]Message{}, s.history...)
	s.mu.Unlock()

	go s.client.Stream(ctx, history, s.registry.FunctionSpecs(), pump)

	rec := stream.NewReconstructor()
	for {
		if ctx.Err() != nil {
			pump.Cancel()
			return stream.Turn{Text: rec.Text()}, ctx.Err()
		}

		c, res := pump.Poll(pollInterval)
		switch res {
		case stream.PollChunk:
			rec.Feed(c)
		case stream.PollTimeout:
			// loop: cancellation is checked at the top
		case stream.PollDone:
			if err := pump.Err(); err != nil {
				return stream.Turn{Text: rec.Text()}, fmt.Errorf("model stream: %w", err)
			}
			return rec.Finalize(), nil
		}
	}
}

// runCalls takes each proposed call through the approval engine and
// folds the results into history for the next model turn.
func (s *Session) runCalls(ctx context.Context, calls []stream.ToolCall) error {
	results := make([]Message, 0, len(calls))

	for _, tc := range calls {
		call := &permission.Call{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: tc.Arguments,
		}
		if call.ID == "" {
			call.ID = uuid.NewString()
		}

		var err error
		if tc.ParseErr != nil {
			err = s.engine.DenyCall(call, fmt.Sprintf("malformed arguments: %v", tc.ParseErr))
		} else {
			err = s.engine.Run(ctx, call)
		}
		if err != nil {
			return fmt.Errorf("tool call %s: %w", call.ID, err)
		}

		results = append(results, Message{
			Role:    "tool",
			CallID:  call.ID,
			Text:    call.Result,
			IsError: call.IsError,
		})
	}

	s.mu.Lock()
	s.history = append(s.history, results...)
	s.mu.Unlock()
	return nil
}
