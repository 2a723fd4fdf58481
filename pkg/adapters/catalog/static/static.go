package static

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

// HandleFactory builds a worker handle from its descriptor.
type HandleFactory func(desc domain.WorkerDescriptor) ports.WorkerHandle

// Catalog is an in-memory worker capability catalog. Descriptors are
// registered once at start-up; the orchestration core only reads them.
type Catalog struct {
	mu          sync.RWMutex
	descriptors map[string]domain.WorkerDescriptor
	factories   map[string]HandleFactory
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		descriptors: make(map[string]domain.WorkerDescriptor),
		factories:   make(map[string]HandleFactory),
	}
}

// Add registers a descriptor with its handle factory.
func (c *Catalog) Add(desc domain.WorkerDescriptor, factory HandleFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors[desc.ID] = desc
	c.factories[desc.ID] = factory
}

// Descriptor returns the descriptor for a worker id.
func (c *Catalog) Descriptor(workerID string) (domain.WorkerDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	desc, ok := c.descriptors[workerID]
	return desc, ok
}

// Descriptors returns all descriptors in stable id order.
func (c *Catalog) Descriptors() []domain.WorkerDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.WorkerDescriptor, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Instantiate builds a fresh handle for a worker id.
func (c *Catalog) Instantiate(workerID string) (ports.WorkerHandle, error) {
	c.mu.RLock()
	desc, ok := c.descriptors[workerID]
	factory := c.factories[workerID]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no catalog entry for worker %s", workerID)
	}
	if factory == nil {
		return Handle{}, nil
	}
	return factory(desc), nil
}

// Handle is a minimal always-operational worker handle used for workers
// whose execution goes through the fallback cascade rather than the handle.
type Handle struct{}

func (Handle) ExecuteTask(ctx context.Context, task domain.Task) (string, error) {
	return "", fmt.Errorf("worker handle does not execute directly")
}

func (Handle) HealthStatus(ctx context.Context) (ports.HealthState, error) {
	return ports.HealthOperational, nil
}
