package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/swarmbus-io/swarmbus/core"
)

// Registry maps tool names to implementations. It is read-mostly after
// setup; concurrent lookups never block each other.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, failing with ErrDuplicateTool on a name collision.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name()]; ok {
		return fmt.Errorf("%w: %s", core.ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Unregister removes a tool by name; absent names fail with ErrUnknownTool.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownTool, name)
	}
	delete(r.tools, name)
	return nil
}

// Get resolves a tool by name, failing with ErrUnknownTool when absent.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownTool, name)
	}
	return t, nil
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
