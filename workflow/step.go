package workflow

import (
	"context"
	"maps"
	"sort"
	"sync"
)

// Handler executes one step. It receives the step as declared on the
// definition and the execution context accumulated so far. The returned
// output map is merged into the execution context for subsequent steps.
type Handler func(ctx context.Context, step Step, execCtx map[string]any) (map[string]any, error)

// Registry maps step types to handlers. Built-in handlers are registered
// at engine construction; custom step types may be added at runtime. It is
// safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty step handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for a step type.
func (r *Registry) Register(stepType string, h Handler) {
	r.mu.Lock()
	r.handlers[stepType] = h
	r.mu.Unlock()
}

// Handler returns the handler registered for the given step type.
func (r *Registry) Handler(stepType string) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.handlers[stepType]
	r.mu.RUnlock()
	return h, ok
}

// Types returns the registered step types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	r.mu.RUnlock()
	sort.Strings(types)
	return types
}

// MergeConfig overlays the step config on the execution context. Step
// config wins on key collision.
func MergeConfig(execCtx map[string]any, config map[string]any) map[string]any {
	merged := make(map[string]any, len(execCtx)+len(config))
	maps.Copy(merged, execCtx)
	maps.Copy(merged, config)
	return merged
}
