package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/application/bus"
	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

// record is the mutable per-worker bookkeeping. One record exists per
// catalog entry for the whole process lifetime; deactivated, never deleted.
type record struct {
	descriptor domain.WorkerDescriptor
	handle     ports.WorkerHandle

	state       domain.WorkerLifecycle
	activeTasks int
	completed   int64
	health      float64

	metrics domain.PerformanceMetrics
}

// WorkerView is a read-only snapshot of one worker handed to the router.
type WorkerView struct {
	Descriptor domain.WorkerDescriptor
	State      domain.WorkerState
	Metrics    domain.PerformanceMetrics
}

// Registry tracks instantiated workers, their lifecycle state and rolling
// performance statistics. All mutation happens under one mutex; Go has real
// parallelism, so the single-thread assumption of event-loop runtimes does
// not hold here.
type Registry struct {
	catalog ports.Catalog
	bus     *bus.Bus
	metrics ports.MetricsCollector
	logger  *zap.Logger

	mu      sync.RWMutex
	workers map[string]*record
}

// New creates a registry with one unregistered record per catalog entry.
func New(catalog ports.Catalog, b *bus.Bus, metrics ports.MetricsCollector, logger *zap.Logger) *Registry {
	r := &Registry{
		catalog: catalog,
		bus:     b,
		metrics: metrics,
		logger:  logger,
		workers: make(map[string]*record),
	}

	for _, desc := range catalog.Descriptors() {
		r.workers[desc.ID] = &record{
			descriptor: desc,
			state:      domain.WorkerUnregistered,
			health:     1.0,
		}
	}

	return r
}

// Register instantiates a worker from the catalog and activates it.
// Re-registration is idempotent; the last instantiation wins.
func (r *Registry) Register(ctx context.Context, workerID string) error {
	desc, ok := r.catalog.Descriptor(workerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, workerID)
	}

	handle, err := r.catalog.Instantiate(workerID)
	if err != nil {
		return fmt.Errorf("instantiate worker %s: %w", workerID, err)
	}

	r.mu.Lock()
	rec, exists := r.workers[workerID]
	if !exists {
		rec = &record{health: 1.0}
		r.workers[workerID] = rec
	}
	rec.descriptor = desc
	rec.handle = handle
	rec.state = domain.WorkerActive
	r.mu.Unlock()

	r.logger.Info("worker registered",
		zap.String("worker_id", workerID),
		zap.String("specialization", desc.Specialization))

	r.announce(ctx, domain.MsgWorkerRegistered, workerID)
	return nil
}

// IsRegistered reports whether a worker is currently active or busy.
func (r *Registry) IsRegistered(workerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.workers[workerID]
	return ok && (rec.state == domain.WorkerActive || rec.state == domain.WorkerBusy)
}

// Unregister invokes the worker's shutdown hook (at most once, best-effort)
// and deactivates it. Shutdown failures are logged, never propagated; they
// move the worker to the error state instead of inactive.
func (r *Registry) Unregister(ctx context.Context, workerID string) bool {
	r.mu.Lock()
	rec, ok := r.workers[workerID]
	if !ok || rec.state == domain.WorkerInactive || rec.state == domain.WorkerUnregistered {
		r.mu.Unlock()
		return false
	}
	handle := rec.handle
	rec.handle = nil
	r.mu.Unlock()

	next := domain.WorkerInactive
	if stoppable, ok := handle.(ports.Stoppable); ok {
		if err := r.shutdownHook(ctx, stoppable); err != nil {
			r.logger.Warn("worker shutdown hook failed",
				zap.String("worker_id", workerID),
				zap.Error(err))
			next = domain.WorkerError
		}
	}

	r.mu.Lock()
	rec.state = next
	rec.activeTasks = 0
	r.mu.Unlock()

	r.logger.Info("worker unregistered", zap.String("worker_id", workerID))
	r.announce(ctx, domain.MsgWorkerUnregistered, workerID)
	return true
}

// shutdownHook calls Shutdown with panic containment.
func (r *Registry) shutdownHook(ctx context.Context, s ports.Stoppable) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("shutdown panicked: %v", rec)
		}
	}()
	return s.Shutdown(ctx)
}

// RecordStart marks the beginning of a task on a worker.
func (r *Registry) RecordStart(workerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.workers[workerID]
	if !ok {
		return
	}
	rec.activeTasks++
	rec.state = domain.WorkerBusy
}

// RecordFinish marks the end of a task and folds the outcome into the
// worker's rolling statistics. The in-flight counter is floored at zero;
// the success rate is a weighted running average, not a counter ratio.
func (r *Registry) RecordFinish(workerID string, elapsed time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.workers[workerID]
	if !ok {
		return
	}

	if rec.activeTasks > 0 {
		rec.activeTasks--
	}
	if rec.activeTasks == 0 && rec.state == domain.WorkerBusy {
		rec.state = domain.WorkerActive
	}

	n := rec.metrics.Executions + 1
	rec.metrics.Executions = n

	s := 0.0
	if success {
		s = 1.0
		rec.completed++
	} else {
		rec.metrics.ErrorCount++
	}
	rec.metrics.SuccessRate = (rec.metrics.SuccessRate*float64(n-1) + s) / float64(n)

	ms := float64(elapsed.Milliseconds())
	rec.metrics.AvgExecutionMs += (ms - rec.metrics.AvgExecutionMs) / float64(n)
	rec.metrics.LastExecutedAt = time.Now()
}

// HealthCheck probes every active or busy worker and refreshes health
// scores: 1.0 for operational, 0.5 for degraded, 0.0 for down or when the
// probe fails or panics. This is a full sweep, not a sample.
func (r *Registry) HealthCheck(ctx context.Context) map[string]bool {
	r.mu.RLock()
	type probe struct {
		id     string
		handle ports.WorkerHandle
	}
	probes := make([]probe, 0, len(r.workers))
	for id, rec := range r.workers {
		if rec.state == domain.WorkerActive || rec.state == domain.WorkerBusy {
			probes = append(probes, probe{id: id, handle: rec.handle})
		}
	}
	r.mu.RUnlock()

	results := make(map[string]bool, len(probes))
	for _, p := range probes {
		score, failed := r.probeWorker(ctx, p.handle)

		r.mu.Lock()
		if rec, ok := r.workers[p.id]; ok {
			rec.health = score
			if failed {
				rec.state = domain.WorkerError
			}
		}
		r.mu.Unlock()

		results[p.id] = score > 0.5
	}
	return results
}

// probeWorker evaluates one handle with panic containment.
func (r *Registry) probeWorker(ctx context.Context, h ports.WorkerHandle) (score float64, failed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("health probe panicked", zap.Any("panic", rec))
			score, failed = 0.0, true
		}
	}()

	if h == nil {
		return 0.0, true
	}

	status, err := h.HealthStatus(ctx)
	if err != nil {
		return 0.0, true
	}

	switch status {
	case ports.HealthOperational:
		return 1.0, false
	case ports.HealthDegraded:
		return 0.5, false
	default:
		return 0.0, false
	}
}

// Views returns router-facing snapshots of all active and busy workers,
// in stable worker-id order.
func (r *Registry) Views() []WorkerView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]WorkerView, 0, len(r.workers))
	for id, rec := range r.workers {
		if rec.state != domain.WorkerActive && rec.state != domain.WorkerBusy {
			continue
		}
		views = append(views, WorkerView{
			Descriptor: rec.descriptor,
			State:      r.stateOf(id, rec),
			Metrics:    rec.metrics,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Descriptor.ID < views[j].Descriptor.ID
	})
	return views
}

// State returns the current state snapshot of one worker.
func (r *Registry) State(workerID string) (domain.WorkerState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.workers[workerID]
	if !ok {
		return domain.WorkerState{}, false
	}
	return r.stateOf(workerID, rec), true
}

// Metrics returns the rolling statistics of one worker.
func (r *Registry) Metrics(workerID string) (domain.PerformanceMetrics, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.workers[workerID]
	if !ok {
		return domain.PerformanceMetrics{}, false
	}
	return rec.metrics, true
}

// PoolStatus counts workers per lifecycle bucket.
func (r *Registry) PoolStatus() (active, busy, inactive int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.workers {
		switch rec.state {
		case domain.WorkerActive:
			active++
		case domain.WorkerBusy:
			busy++
		case domain.WorkerInactive, domain.WorkerError:
			inactive++
		}
	}
	return active, busy, inactive
}

// stateOf builds a WorkerState snapshot. Caller holds at least a read lock.
func (r *Registry) stateOf(id string, rec *record) domain.WorkerState {
	return domain.WorkerState{
		WorkerID:       id,
		State:          rec.state,
		ActiveTasks:    rec.activeTasks,
		CompletedTasks: rec.completed,
		AvgResponseMs:  rec.metrics.AvgExecutionMs,
		HealthScore:    rec.health,
	}
}

// announce publishes a lifecycle event on the system channel.
func (r *Registry) announce(ctx context.Context, msgType, workerID string) {
	if r.bus == nil {
		return
	}
	if _, err := r.bus.Publish(ctx, "registry", domain.ChannelSystem, msgType, map[string]any{
		"worker_id": workerID,
	}); err != nil {
		r.logger.Warn("failed to announce worker event",
			zap.String("type", msgType),
			zap.String("worker_id", workerID),
			zap.Error(err))
	}
}
