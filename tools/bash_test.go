package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolgate/guard"
)

func newBashTool() *BashTool {
	return NewBashTool(guard.NewCommandGuard(guard.DefaultConfig()))
}

func TestBashTool_Name(t *testing.T) {
	assert.Equal(t, "Bash", newBashTool().Name())
}

func TestBashTool_Execute_Simple(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	result, err := newBashTool().Execute(context.Background(), map[string]any{
		"command": "echo hello",
	})

	r.NoError(err)
	a.False(result.IsError)
	a.Equal("hello", result.Content)
}

func TestBashTool_Execute_MissingCommand(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	result, err := newBashTool().Execute(context.Background(), map[string]any{})

	r.NoError(err)
	a.True(result.IsError)
	a.Contains(result.Content, "required")
}

func TestBashTool_Execute_GuardBlocksBeforeExecution(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// when - a blocked command
	result, err := newBashTool().Execute(context.Background(), map[string]any{
		"command": "sudo rm -rf /",
	})

	// then - refused without touching a shell
	r.NoError(err)
	a.True(result.IsError)
	a.Contains(result.Content, "blocked command pattern")
}

func TestBashTool_Execute_NonZeroExit(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	result, err := newBashTool().Execute(context.Background(), map[string]any{
		"command": "echo oops >&2; exit 3",
	})

	// then - error result carries stderr output
	r.NoError(err)
	a.True(result.IsError)
	a.Contains(result.Content, "oops")
}

func TestBashTool_Execute_Timeout(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	result, err := newBashTool().Execute(context.Background(), map[string]any{
		"command": "sleep 2",
		"timeout": float64(100),
	})

	r.NoError(err)
	a.True(result.IsError)
	a.Contains(result.Content, "timeout")
}

func TestBashTool_Execute_Cancellation(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newBashTool().Execute(ctx, map[string]any{
		"command": "sleep 2",
	})

	r.NoError(err)
	a.True(result.IsError)
	a.Contains(result.Content, "cancelled")
}
