package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"toolgate/guard"
)

const (
	defaultTimeoutMs = 120000 // 2 minutes
	maxTimeoutMs     = 600000 // 10 minutes
)

// BashTool executes shell commands behind the command guard
type BashTool struct {
	guard *guard.CommandGuard
}

// NewBashTool creates a new Bash tool
func NewBashTool(g *guard.CommandGuard) *BashTool {
	return &BashTool{guard: g}
}

// Name returns "Bash"
func (b *BashTool) Name() string {
	return "Bash"
}

// Execute runs a shell command with optional timeout
func (b *BashTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	// extract command (required)
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return Result{Content: "command is required", IsError: true}, nil
	}

	// guard check before anything touches a shell
	if err := b.guard.Check(command); err != nil {
		return Result{Content: err.Error(), IsError: true}, nil
	}

	// extract timeout (optional, defaults to 120000ms, max 600000ms)
	timeoutMs := defaultTimeoutMs
	if v, ok := args["timeout"].(float64); ok && v > 0 {
		timeoutMs = int(v)
		if timeoutMs > maxTimeoutMs {
			timeoutMs = maxTimeoutMs
		}
	}

	timeout := time.Duration(timeoutMs) * time.Millisecond
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "bash", "-c", command)

	// capture combined stdout+stderr
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()

	result := strings.TrimRight(output.String(), "\n\r\t ")

	if cmdCtx.Err() == context.DeadlineExceeded {
		return Result{
			Content: fmt.Sprintf("command timeout after %dms: %s", timeoutMs, result),
			IsError: true,
		}, nil
	}

	if ctx.Err() == context.Canceled {
		return Result{
			Content: "command cancelled",
			IsError: true,
		}, nil
	}

	if err != nil {
		// include output with error (often contains useful stderr)
		if result != "" {
			return Result{Content: result, IsError: true}, nil
		}
		return Result{Content: err.Error(), IsError: true}, nil
	}

	return Result{Content: result}, nil
}
