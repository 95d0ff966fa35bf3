package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"toolgate/guard"
)

// ReadTool reads files with optional offset and limit
type ReadTool struct {
	paths *guard.PathGuard
}

// NewReadTool creates a new Read tool
func NewReadTool(g *guard.PathGuard) *ReadTool {
	return &ReadTool{paths: g}
}

// Name returns "Read"
func (r *ReadTool) Name() string {
	return "Read"
}

// Execute reads a file and returns content with line numbers
func (r *ReadTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	// extract file_path (required)
	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return Result{Content: "file_path is required", IsError: true}, nil
	}

	clean, err := r.paths.CheckRead(filePath)
	if err != nil {
		return Result{Content: err.Error(), IsError: true}, nil
	}

	// extract optional offset (1-indexed line number)
	offset := 1
	if v, ok := args["offset"].(float64); ok && v > 0 {
		offset = int(v)
	}

	// extract optional limit
	limit := -1 // -1 means no limit
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return Result{Content: err.Error(), IsError: true}, nil
	}

	if len(data) == 0 {
		return Result{Content: ""}, nil
	}

	lines := strings.Split(string(data), "\n")

	// handle trailing newline - don't count empty line after final \n
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	// apply offset (1-indexed)
	startIdx := offset - 1
	if startIdx >= len(lines) {
		return Result{Content: ""}, nil
	}
	if startIdx < 0 {
		startIdx = 0
	}

	endIdx := len(lines)
	if limit > 0 && startIdx+limit < endIdx {
		endIdx = startIdx + limit
	}

	// format with line numbers (cat -n style: number + tab)
	var sb strings.Builder
	for i := startIdx; i < endIdx; i++ {
		sb.WriteString(fmt.Sprintf("%d\t%s\n", i+1, lines[i]))
	}

	return Result{Content: strings.TrimSuffix(sb.String(), "\n")}, nil
}
