package agent

import (
	"context"
	"sync"
)

// ToolRegistry is a name -> Tool mapping with insertion-order iteration, so
// the tool-definition list sent to the model is reproducible across calls.
// Lookup is O(1); registering the same name twice replaces the earlier
// tool but keeps its original position in the order.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool. A tool name must be non-empty.
func (r *ToolRegistry) Register(t Tool) {
	if t == nil || t.Name() == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// RegisterMany registers each tool in order.
func (r *ToolRegistry) RegisterMany(tools ...Tool) {
	for _, t := range tools {
		r.Register(t)
	}
}

// Has reports whether name is registered.
func (r *ToolRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Get returns the tool registered under name, if any.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Remove drops a tool from the registry, preserving the order of the
// remaining tools. A no-op if name isn't registered.
func (r *ToolRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// All returns every registered tool in insertion order.
func (r *ToolRegistry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.tools[n])
	}
	return out
}

// Names returns every registered tool name in insertion order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns the wire-form definitions for every registered tool,
// in insertion order, suitable for a model call.
func (r *ToolRegistry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, definitionOf(r.tools[n]))
	}
	return out
}

// Execute resolves name and delegates to its Execute, returning an error
// ToolResult (not a Go error) when the tool is unknown so callers never
// need to special-case lookup failures.
func (r *ToolRegistry) Execute(ctx context.Context, name string, input map[string]any) ToolResult {
	t, ok := r.Get(name)
	if !ok {
		return Error("Unknown tool: " + name)
	}
	return t.Execute(ctx, input)
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
