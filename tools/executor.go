package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// ErrToolNotFound returned when executing an unregistered tool
var ErrToolNotFound = errors.New("tool not found")

// Result returned by tool execution
type Result struct {
	Content  string // output text
	IsError  bool   // true if tool reports an error
	FilePath string // for file-modifying tools
}

// Tool interface for individual tool implementations
type Tool interface {
	Name() string
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// Executor stores tools and dispatches execution. A panicking tool is
// contained: the panic becomes an error result instead of taking down
// the session.
type Executor struct {
	tools  map[string]Tool
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewExecutor creates an empty executor
func NewExecutor(logger *zap.Logger) *Executor {
	return &Executor{tools: make(map[string]Tool), logger: logger}
}

// Register adds a tool to the executor
func (e *Executor) Register(tool Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[tool.Name()] = tool
}

// Has checks if a tool is registered
func (e *Executor) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.tools[name]
	return ok
}

// Execute runs the named tool with the given arguments
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (result Result, err error) {
	e.mu.RLock()
	tool, ok := e.tools[name]
	e.mu.RUnlock()

	if !ok {
		return Result{}, ErrToolNotFound
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked",
				zap.String("tool", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			result = Result{Content: fmt.Sprintf("tool %s panicked: %v", name, r), IsError: true}
			err = nil
		}
	}()

	return tool.Execute(ctx, args)
}

// Tools returns all registered tools
func (e *Executor) Tools() []Tool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]Tool, 0, len(e.tools))
	for _, t := range e.tools {
		result = append(result, t)
	}
	return result
}
