package audit

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// EventType names one step of a tool call's lifecycle.
type EventType string

const (
	EventRequest   EventType = "request"   // tool call received, pending decision
	EventApproval  EventType = "approval"  // approver allowed the call
	EventDenial    EventType = "denial"    // approver (or policy) refused the call
	EventExecution EventType = "execution" // executor started
	EventResult    EventType = "result"    // executor finished without error
	EventError     EventType = "error"     // executor failed or panicked
)

// Essential reports whether a failure to record this event type must
// abort the tool call. Decision events form the authorization record;
// losing them silently would let a call run without a trace.
func (t EventType) Essential() bool {
	switch t {
	case EventRequest, EventApproval, EventDenial:
		return true
	}
	return false
}

// PreviewLength is the max runes of serialized arguments stored per event.
const PreviewLength = 500

// Event is a single audit record for one step of a tool call.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	CallID    string    `json:"call_id"`
	Type      EventType `json:"type"`
	Time      time.Time `json:"ts"`
	Tool      string    `json:"tool"`
	Risk      string    `json:"risk,omitempty"`
	Arguments string    `json:"arguments,omitempty"` // truncated preview
	ArgsHash  string    `json:"args_hash,omitempty"` // SHA-256 of full serialized arguments
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	Duration  float64   `json:"duration_ms,omitempty"`
}

// Sink persists audit events. Record may be asynchronous, but for
// essential events the caller treats a returned error as fatal to the
// call being audited.
type Sink interface {
	Record(e *Event) error
	Close() error
}

// SerializeArgs renders tool arguments for auditing: a truncated preview
// plus a hash of the full serialization. json.Marshal sorts map keys, so
// equal argument maps always hash equal.
func SerializeArgs(args map[string]any) (preview, hash string) {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("<unserializable: %v>", err), ""
	}
	sum := sha256.Sum256(data)
	return truncate(string(data), PreviewLength), fmt.Sprintf("%x", sum)
}

// truncate returns the first n runes without splitting a multi-byte
// character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
