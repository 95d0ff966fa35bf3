package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrRepeatedCalls aborts a turn whose tool-call batch exactly repeats
// the previous one.
var ErrRepeatedCalls = errors.New("repeated identical tool call batch")

// DefaultMaxIterations caps tool-calling rounds per prompt.
const DefaultMaxIterations = 8

// LoopGuard detects runaway tool-calling loops. It compares each
// batch's structural signature to the immediately preceding batch, and
// independently enforces a hard iteration cap as a second line of
// defense against non-identical but unbounded looping.
type LoopGuard struct {
	maxIterations int
	iterations    int
	lastSignature string
}

// NewLoopGuard creates a guard with the given iteration cap
// (DefaultMaxIterations if non-positive).
func NewLoopGuard(maxIterations int) *LoopGuard {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &LoopGuard{maxIterations: maxIterations}
}

// Check records one batch of proposed calls and returns an error if the
// turn must abort. An empty batch never trips the repeat check.
func (g *LoopGuard) Check(calls []ToolCall) error {
	g.iterations++
	if g.iterations > g.maxIterations {
		return fmt.Errorf("tool iteration cap reached (%d rounds)", g.maxIterations)
	}

	sig := signature(calls)
	if sig != "" && sig == g.lastSignature {
		return fmt.Errorf("%w: %s", ErrRepeatedCalls, callNames(calls))
	}
	g.lastSignature = sig
	return nil
}

// Reset clears state at the start of a new prompt.
func (g *LoopGuard) Reset() {
	g.iterations = 0
	g.lastSignature = ""
}

// signature canonicalizes a batch: tool name plus serialized arguments
// per call. json.Marshal sorts map keys, so two argument maps with the
// same values produce the same signature regardless of key order.
func signature(calls []ToolCall) string {
	if len(calls) == 0 {
		return ""
	}
	parts := make([]string, 0, len(calls))
	for _, c := range calls {
		args, err := json.Marshal(c.Arguments)
		if err != nil {
			args = []byte(c.RawArgs)
		}
		parts = append(parts, c.Name+"("+string(args)+")")
	}
	return strings.Join(parts, ";")
}

func callNames(calls []ToolCall) string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}
