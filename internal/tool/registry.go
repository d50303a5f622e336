package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/engram/internal/provider"
)

// Definition represents a tool that can be called by the AI.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Executor is a function that executes a tool call and returns the result.
type Executor func(ctx context.Context, call provider.ToolCall) (string, error)

// Registry manages available tools and their execution.
// It provides a centralized way to register, discover, and execute tools.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Definition
	executors map[string]Executor
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Definition),
		executors: make(map[string]Executor),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(def Definition, executor Executor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}

	r.tools[def.Name] = def
	r.executors[def.Name] = executor
	return nil
}

// Unregister removes a tool from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tools, name)
	delete(r.executors, name)
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	return def, ok
}

// List returns all registered tool definitions.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, def := range r.tools {
		defs = append(defs, def)
	}
	return defs
}

// Execute runs a tool and returns its result.
func (r *Registry) Execute(ctx context.Context, call provider.ToolCall) (string, error) {
	r.mu.RLock()
	executor, ok := r.executors[call.Name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("unknown tool: %s", call.Name)
	}

	return executor(ctx, call)
}

// Has checks if a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tools[name]
	return ok
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Specs returns the registered tools in the neutral shape the provider
// layer sends to model APIs.
func (r *Registry) Specs() []provider.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]provider.ToolSpec, 0, len(r.tools))
	for _, def := range r.tools {
		specs = append(specs, provider.ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return specs
}
