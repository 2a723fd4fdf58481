package routing

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/application/registry"
	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

// Engine scores and selects workers for tasks using a pluggable strategy.
type Engine struct {
	registry *registry.Registry
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	mu         sync.RWMutex
	strategies map[string]Strategy
	active     string
}

// NewEngine creates a routing engine with the four default strategies
// registered and performance-based active.
func NewEngine(r *registry.Registry, metrics ports.MetricsCollector, logger *zap.Logger) *Engine {
	e := &Engine{
		registry:   r,
		metrics:    metrics,
		logger:     logger,
		strategies: make(map[string]Strategy),
		active:     StrategyPerformance,
	}

	e.RegisterStrategy(performanceBased{})
	e.RegisterStrategy(loadBalancing{})
	e.RegisterStrategy(&roundRobin{})
	e.RegisterStrategy(specializationFirst{})

	return e
}

// RegisterStrategy makes a strategy available by name, replacing any
// previous strategy with the same name.
func (e *Engine) RegisterStrategy(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// UseStrategy activates a registered strategy.
func (e *Engine) UseStrategy(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.strategies[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	e.active = name
	return nil
}

// ActiveStrategy returns the name of the strategy in use.
func (e *Engine) ActiveStrategy() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// SelectWorker picks one worker for the task using the active strategy.
func (e *Engine) SelectWorker(task domain.Task) (string, error) {
	candidates := eligible(e.registry.Views(), task)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: task type %s", ErrNoCandidateWorkers, task.Type)
	}

	e.mu.RLock()
	strategy := e.strategies[e.active]
	e.mu.RUnlock()

	chosen := strategy.Select(candidates, task)

	if e.metrics != nil {
		e.metrics.RecordRouting(strategy.Name())
	}
	e.logger.Debug("worker selected",
		zap.String("task_id", task.ID),
		zap.String("task_type", task.Type),
		zap.String("worker_id", chosen),
		zap.String("strategy", strategy.Name()))

	return chosen, nil
}

// SelectWorkers scores every candidate with the default function and
// returns the top k ids in descending score order. Fewer than k eligible
// candidates is a soft condition: it is logged, not an error.
func (e *Engine) SelectWorkers(task domain.Task, k int) ([]string, error) {
	candidates := eligible(e.registry.Views(), task)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: task type %s", ErrNoCandidateWorkers, task.Type)
	}

	if len(candidates) < k {
		e.logger.Info("fewer candidates than requested",
			zap.String("task_id", task.ID),
			zap.Int("requested", k),
			zap.Int("available", len(candidates)))
		k = len(candidates)
	}

	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{id: c.Descriptor.ID, score: score(c, task)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = ranked[i].id
	}
	return out, nil
}
