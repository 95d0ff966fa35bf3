package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"toolgate/audit"
	"toolgate/permission"
	"toolgate/registry"
	"toolgate/stream"
	"toolgate/tools"
)

// scriptedClient replays one chunk script per model turn.
type scriptedClient struct {
	mu      sync.Mutex
	scripts [][]stream.Chunk
	turn    int
	err     error // fail the first turn with this instead
}

func (c *scriptedClient) Stream(ctx context.Context, history []Message, specs []registry.FunctionSpec, pump *stream.Pump) {
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		pump.Fail(err)
		return
	}
	var script []stream.Chunk
	if c.turn < len(c.scripts) {
		script = c.scripts[c.turn]
		c.turn++
	}
	c.mu.Unlock()

	for _, chunk := range script {
		if !pump.Emit(chunk) {
			return
		}
	}
	pump.Finish()
}

// countingExecutor counts executions and echoes the command argument.
type countingExecutor struct {
	mu    sync.Mutex
	calls int
}

func (e *countingExecutor) Execute(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	cmd, _ := args["command"].(string)
	return tools.Result{Content: "ran: " + cmd}, nil
}

func (e *countingExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type nullSink struct{}

func (nullSink) Record(*audit.Event) error { return nil }
func (nullSink) Close() error              { return nil }

func bashRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register(registry.Descriptor{
		Name: "bash",
		InputSchema: registry.InputSchema{
			Type: "object",
			Properties: map[string]registry.Property{
				"command": {Type: "string"},
			},
			Required: []string{"command"},
		},
		Risk:    registry.RiskCaution,
		Enabled: true,
	}))
	return reg
}

func newTestSession(t *testing.T, client ModelClient, exec permission.Executor) *Session {
	t.Helper()
	reg := bashRegistry(t)
	policy := permission.DefaultPolicy()
	policy.AutoApprove = true // approval paths are covered in the permission tests
	eng := permission.NewEngine(reg, exec, policy, nil, nullSink{}, zap.NewNop(), "sess-test")
	return NewSession(client, reg, eng, 0, zap.NewNop())
}

func bashCallChunks(command string) []stream.Chunk {
	return []stream.Chunk{
		{ToolDeltas: []stream.ToolCallDelta{
			{Index: 0, ID: "call-1", Name: "bash", ArgsFragment: `{"command":`},
		}},
		{ToolDeltas: []stream.ToolCallDelta{
			{Index: 0, ArgsFragment: `"` + command + `"}`},
		}},
	}
}

func TestSession_Prompt_PlainTextAnswer(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	client := &scriptedClient{scripts: [][]stream.Chunk{
		{{Text: "Hello "}, {Text: "there."}},
	}}
	s := newTestSession(t, client, &countingExecutor{})

	text, err := s.Prompt(context.Background(), "hi")
	r.NoError(err)
	a.Equal("Hello there.", text)

	history := s.History()
	r.Len(history, 2)
	a.Equal("user", history[0].Role)
	a.Equal("assistant", history[1].Role)
}

func TestSession_Prompt_ToolRoundTrip(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given - turn one proposes a bash call, turn two answers with text
	client := &scriptedClient{scripts: [][]stream.Chunk{
		bashCallChunks("ls"),
		{{Text: "The directory is empty."}},
	}}
	exec := &countingExecutor{}
	s := newTestSession(t, client, exec)

	text, err := s.Prompt(context.Background(), "list files")
	r.NoError(err)
	a.Equal("The directory is empty.", text)
	a.Equal(1, exec.count())

	// history: user, assistant(call), tool result, assistant(text)
	history := s.History()
	r.Len(history, 4)
	a.Equal("tool", history[2].Role)
	a.Equal("call-1", history[2].CallID)
	a.Equal("ran: ls", history[2].Text)
	a.False(history[2].IsError)
}

func TestSession_Prompt_RepeatedBatchAbortsWithoutSecondExecution(t *testing.T) {
	a := assert.New(t)

	// given - the model issues the identical bash batch twice in a row
	client := &scriptedClient{scripts: [][]stream.Chunk{
		bashCallChunks("ls"),
		bashCallChunks("ls"),
	}}
	exec := &countingExecutor{}
	s := newTestSession(t, client, exec)

	_, err := s.Prompt(context.Background(), "list files")

	// then - the turn aborts with the repeat error after one execution
	a.ErrorIs(err, stream.ErrRepeatedCalls)
	a.Equal(1, exec.count())
}

func TestSession_Prompt_IterationCap(t *testing.T) {
	a := assert.New(t)

	// given - a model that keeps proposing different commands forever
	scripts := make([][]stream.Chunk, 20)
	for i := range scripts {
		scripts[i] = bashCallChunks("cmd-" + string(rune('a'+i)))
	}
	client := &scriptedClient{scripts: scripts}
	exec := &countingExecutor{}
	s := newTestSession(t, client, exec)

	_, err := s.Prompt(context.Background(), "go")

	a.Error(err)
	a.Contains(err.Error(), "iteration cap")
	a.Equal(stream.DefaultMaxIterations, exec.count())
}

func TestSession_Prompt_SecondPromptWhileInFlight(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given - a client that blocks until released
	release := make(chan struct{})
	client := blockingClient{release: release}
	s := newTestSession(t, client, &countingExecutor{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Prompt(context.Background(), "first")
		done <- err
	}()

	// wait for the first prompt to take the in-flight slot
	r.Eventually(func() bool {
		_, err := s.Prompt(context.Background(), "second")
		return errors.Is(err, ErrTurnInFlight)
	}, time.Second, 10*time.Millisecond)

	close(release)
	r.NoError(<-done)

	// after completion, new prompts are accepted again
	_, err := s.Prompt(context.Background(), "third")
	a.NoError(err)
}

type blockingClient struct {
	release chan struct{}
}

func (c blockingClient) Stream(ctx context.Context, history []Message, specs []registry.FunctionSpec, pump *stream.Pump) {
	select {
	case <-c.release:
	case <-ctx.Done():
	}
	pump.Emit(stream.Chunk{Text: "ok"})
	pump.Finish()
}

func TestSession_Prompt_CancellationPreservesPartialText(t *testing.T) {
	a := assert.New(t)

	client := &trickleClient{}
	s := newTestSession(t, client, &countingExecutor{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var text string
	var err error
	go func() {
		text, err = s.Prompt(ctx, "talk slowly")
		close(done)
	}()

	// let a few chunks through, then cancel mid-stream
	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	a.ErrorIs(err, context.Canceled)
	a.NotEmpty(text)
}

// trickleClient emits a chunk every 50ms until cancelled.
type trickleClient struct{}

func (trickleClient) Stream(ctx context.Context, history []Message, specs []registry.FunctionSpec, pump *stream.Pump) {
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			pump.Finish()
			return
		case <-time.After(50 * time.Millisecond):
		}
		if !pump.Emit(stream.Chunk{Text: "word "}) {
			return
		}
	}
}

func TestSession_Prompt_StreamErrorPropagates(t *testing.T) {
	a := assert.New(t)

	client := &scriptedClient{err: errors.New("connection reset")}
	s := newTestSession(t, client, &countingExecutor{})

	_, err := s.Prompt(context.Background(), "hi")
	a.Error(err)
	a.Contains(err.Error(), "connection reset")
}

func TestSession_Prompt_MalformedCallDeniedNotExecuted(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given - a tool call whose arguments JSON never completes
	client := &scriptedClient{scripts: [][]stream.Chunk{
		{{ToolDeltas: []stream.ToolCallDelta{
			{Index: 0, ID: "call-1", Name: "bash", ArgsFragment: `{"command": "ls"`},
		}}},
		{{Text: "Understood, I will fix the call."}},
	}}
	exec := &countingExecutor{}
	s := newTestSession(t, client, exec)

	text, err := s.Prompt(context.Background(), "go")
	r.NoError(err)

	// then - the call was surfaced, denied with a reason, never executed
	a.Equal(0, exec.count())
	a.Equal("Understood, I will fix the call.", text)

	history := s.History()
	r.Len(history, 4)
	a.True(history[2].IsError)
	a.Contains(history[2].Text, "malformed arguments")
}
