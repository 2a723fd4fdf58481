package patterns

import (
	"sync"

	"github.com/helixops/taskmesh/internal/ports"
)

// Registry is a thread-safe name-indexed collection of workflow patterns.
// It satisfies ports.WorkflowPatterns.
type Registry struct {
	mu       sync.RWMutex
	patterns map[string]ports.WorkflowPattern
}

// NewRegistry creates an empty pattern registry.
func NewRegistry() *Registry {
	return &Registry{
		patterns: make(map[string]ports.WorkflowPattern),
	}
}

// Register adds or replaces a pattern under the given name.
func (r *Registry) Register(name string, p ports.WorkflowPattern) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[name] = p
}

// Pattern returns the pattern registered under name, if any.
func (r *Registry) Pattern(name string) (ports.WorkflowPattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patterns[name]
	return p, ok
}
