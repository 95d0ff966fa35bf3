package stream

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ToolCall is a fully reassembled tool invocation. When the accumulated
// arguments fail to parse, Arguments is empty and ParseErr explains
// why; the call is still surfaced so the approval layer can reject it
// with a reason instead of it vanishing.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	RawArgs   string
	ParseErr  error
}

// Turn is the final product of one streamed model response.
type Turn struct {
	Text  string
	Calls []ToolCall
	Usage *Usage
}

type partialCall struct {
	id   string
	name string
	args strings.Builder
}

// Reconstructor accumulates chunks into a Turn. Fragments for the same
// tool-call index concatenate in arrival order; id and name are set
// once when they first appear and never overwritten; arguments stay a
// raw string until Finalize, since JSON may split across any chunk
// boundary.
type Reconstructor struct {
	text  strings.Builder
	calls map[int]*partialCall
	usage *Usage
}

// NewReconstructor creates an empty reconstructor.
func NewReconstructor() *Reconstructor {
	return &Reconstructor{calls: make(map[int]*partialCall)}
}

// Feed folds one chunk into the accumulated state.
func (r *Reconstructor) Feed(c Chunk) {
	r.text.WriteString(c.Text)
	for _, b := range c.Blocks {
		if b.Type == "" || b.Type == "text" {
			r.text.WriteString(b.Text)
		}
	}

	for _, d := range c.ToolDeltas {
		pc, ok := r.calls[d.Index]
		if !ok {
			pc = &partialCall{}
			r.calls[d.Index] = pc
		}
		if pc.id == "" && d.ID != "" {
			pc.id = d.ID
		}
		if pc.name == "" && d.Name != "" {
			pc.name = d.Name
		}
		pc.args.WriteString(d.ArgsFragment)
	}

	if c.Usage != nil {
		r.usage = c.Usage
	}
}

// Text returns the text accumulated so far. Useful when a turn is
// cancelled mid-stream: partial text is preserved, not discarded.
func (r *Reconstructor) Text() string {
	return r.text.String()
}

// Finalize parses the accumulated tool calls and returns the completed
// turn. Calls come back ordered by stream index.
func (r *Reconstructor) Finalize() Turn {
	indexes := make([]int, 0, len(r.calls))
	for idx := range r.calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	calls := make([]ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		pc := r.calls[idx]
		call := ToolCall{
			ID:        pc.id,
			Name:      pc.name,
			Arguments: map[string]any{},
			RawArgs:   pc.args.String(),
		}
		if call.RawArgs != "" {
			if err := json.Unmarshal([]byte(call.RawArgs), &call.Arguments); err != nil {
				call.Arguments = map[string]any{}
				call.ParseErr = fmt.Errorf("parse tool arguments: %w", err)
			}
		}
		calls = append(calls, call)
	}

	return Turn{Text: r.text.String(), Calls: calls, Usage: r.usage}
}
