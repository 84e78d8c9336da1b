package tools

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"codescout/internal/logging"
)

// Registry manages the collection of available tools.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Declarations returns all tool declarations for the model.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	declarations := make([]*genai.FunctionDeclaration, 0, len(r.tools))
	for _, tool := range r.tools {
		declarations = append(declarations, tool.Declaration())
	}
	return declarations
}

// Dispatch resolves a tool call by name, validates the arguments and
// executes the tool. Unknown names, validation failures and execution
// errors all become error-text results rather than error returns, so a
// bad call never aborts the conversation turn.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) ToolResult {
	tool, ok := r.Get(name)
	if !ok {
		logging.Warn("unknown tool requested", "tool", name)
		return NewErrorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	if err := tool.Validate(args); err != nil {
		logging.Warn("tool argument validation failed", "tool", name, "error", err)
		return NewErrorResult(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		logging.Error("tool execution failed", "tool", name, "error", err)
		return NewErrorResult(fmt.Sprintf("%s failed: %v", name, err))
	}

	return result
}
