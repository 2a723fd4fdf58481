package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/application/bus"
	"github.com/helixops/taskmesh/internal/application/fallback"
	"github.com/helixops/taskmesh/internal/application/registry"
	"github.com/helixops/taskmesh/internal/application/routing"
	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

// lowLoadMax is the in-flight count below which a worker still counts as
// low-load for fan-out sizing.
const lowLoadMax = 3

// Config holds controller construction parameters.
type Config struct {
	Registry *registry.Registry
	Router   *routing.Engine
	Executor *fallback.Executor
	Bus      *bus.Bus
	Patterns ports.WorkflowPatterns
	Metrics  ports.MetricsCollector
	Logger   *zap.Logger

	Chain             domain.FallbackChain
	MaxFanout         int
	ParallelThreshold int
	TaskTimeout       time.Duration
}

// Controller is the top-level façade: it classifies incoming tasks and
// drives the registry, router, executor and bus accordingly.
type Controller struct {
	registry *registry.Registry
	router   *routing.Engine
	executor *fallback.Executor
	bus      *bus.Bus
	patterns ports.WorkflowPatterns
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	chain             domain.FallbackChain
	maxFanout         int
	parallelThreshold int
	taskTimeout       time.Duration

	mu        sync.Mutex
	executed  int64
	failed    int64
	byPattern map[domain.CoordinationPattern]int64
	totalMs   float64
}

// New creates a coordination controller.
func New(cfg Config) *Controller {
	return &Controller{
		registry:          cfg.Registry,
		router:            cfg.Router,
		executor:          cfg.Executor,
		bus:               cfg.Bus,
		patterns:          cfg.Patterns,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
		chain:             cfg.Chain,
		maxFanout:         cfg.MaxFanout,
		parallelThreshold: cfg.ParallelThreshold,
		taskTimeout:       cfg.TaskTimeout,
		byPattern:         make(map[domain.CoordinationPattern]int64),
	}
}

// RegisterWorker registers a worker, converting failure to a boolean plus a
// logged diagnostic. Callers that need the error use the registry directly.
func (c *Controller) RegisterWorker(ctx context.Context, workerID string) bool {
	if err := c.registry.Register(ctx, workerID); err != nil {
		c.logger.Warn("worker registration failed",
			zap.String("worker_id", workerID),
			zap.Error(err))
		return false
	}
	return true
}

// UnregisterWorker deactivates a worker.
func (c *Controller) UnregisterWorker(ctx context.Context, workerID string) bool {
	return c.registry.Unregister(ctx, workerID)
}

// RouteTask selects one worker for the task without executing it.
func (c *Controller) RouteTask(task domain.Task) (string, error) {
	return c.router.SelectWorker(task)
}

// RouteTaskToMultiple selects up to k workers for the task.
func (c *Controller) RouteTaskToMultiple(task domain.Task, k int) ([]string, error) {
	return c.router.SelectWorkers(task, k)
}

// ExecuteTask runs a task on a specific worker through the fallback
// cascade. An unregistered worker is auto-registered exactly once; an
// unknown catalog id propagates as an error from here. Execution failures
// update the worker's statistics and are re-raised, never swallowed.
func (c *Controller) ExecuteTask(ctx context.Context, workerID string, task domain.Task) (*domain.ExecutionResult, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if !c.registry.IsRegistered(workerID) {
		if err := c.registry.Register(ctx, workerID); err != nil {
			return nil, fmt.Errorf("auto-register %s: %w", workerID, err)
		}
	}

	if c.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	c.registry.RecordStart(workerID)
	result, err := c.executor.Run(ctx, task, c.chain)
	elapsed := time.Since(start)
	c.registry.RecordFinish(workerID, elapsed, err == nil)

	c.record(domain.PatternSingle, elapsed, err == nil)

	event := domain.TaskEvent{
		TaskID:    task.ID,
		Pattern:   string(domain.PatternSingle),
		Workers:   []string{workerID},
		ElapsedMs: elapsed.Milliseconds(),
	}
	if err != nil {
		event.Error = err.Error()
		c.emit(ctx, domain.MsgTaskFailed, event)
		return nil, err
	}
	c.emit(ctx, domain.MsgTaskCompleted, event)
	return result, nil
}

// ExecuteCoordinatedTask classifies the task and drives the matching
// coordination pattern.
func (c *Controller) ExecuteCoordinatedTask(ctx context.Context, task domain.Task) (*domain.CoordinatedResult, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	pattern := c.classify(task)
	c.logger.Info("task classified",
		zap.String("task_id", task.ID),
		zap.String("task_type", task.Type),
		zap.String("pattern", string(pattern)))

	switch pattern {
	case domain.PatternParallel:
		return c.executeParallel(ctx, task)
	case domain.PatternMultiStep:
		return c.executeMultiStep(ctx, task)
	default:
		return c.executeSingle(ctx, task)
	}
}

// executeSingle routes to one worker and runs it.
func (c *Controller) executeSingle(ctx context.Context, task domain.Task) (*domain.CoordinatedResult, error) {
	workerID, err := c.router.SelectWorker(task)
	if err != nil {
		return nil, err
	}

	result, err := c.ExecuteTask(ctx, workerID, task)
	if err != nil {
		return nil, err
	}

	return &domain.CoordinatedResult{
		TaskID:       task.ID,
		Pattern:      domain.PatternSingle,
		Success:      true,
		Workers:      []string{workerID},
		Output:       result.Output,
		Branches:     []domain.BranchResult{{WorkerID: workerID, Result: result}},
		MeanElapsed:  result.Elapsed,
		MaxElapsed:   result.Elapsed,
		SuccessRatio: 1,
		Elapsed:      result.Elapsed,
	}, nil
}

// executeParallel fans the task out to several workers and aggregates.
// Overall success holds iff every branch succeeded.
func (c *Controller) executeParallel(ctx context.Context, task domain.Task) (*domain.CoordinatedResult, error) {
	width := c.fanoutWidth(task)
	workers, err := c.router.SelectWorkers(task, width)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	branches := make([]domain.BranchResult, len(workers))
	var wg sync.WaitGroup
	for i, workerID := range workers {
		wg.Add(1)
		go func(i int, workerID string) {
			defer wg.Done()

			branchStart := time.Now()
			c.registry.RecordStart(workerID)
			result, err := c.executor.Run(ctx, task, c.chain)
			branchElapsed := time.Since(branchStart)
			c.registry.RecordFinish(workerID, branchElapsed, err == nil)

			branch := domain.BranchResult{WorkerID: workerID}
			if err != nil {
				branch.Error = err.Error()
			} else {
				branch.Result = result
			}
			branches[i] = branch
		}(i, workerID)
	}
	wg.Wait()
	elapsed := time.Since(start)

	succeeded := 0
	var meanMs float64
	var maxElapsed time.Duration
	for _, b := range branches {
		if b.Result != nil {
			succeeded++
			meanMs += float64(b.Result.Elapsed.Milliseconds())
			if b.Result.Elapsed > maxElapsed {
				maxElapsed = b.Result.Elapsed
			}
		}
	}
	if succeeded > 0 {
		meanMs /= float64(succeeded)
	}

	agg := &domain.CoordinatedResult{
		TaskID:       task.ID,
		Pattern:      domain.PatternParallel,
		Success:      succeeded == len(branches),
		Workers:      workers,
		Branches:     branches,
		MeanElapsed:  time.Duration(meanMs) * time.Millisecond,
		MaxElapsed:   maxElapsed,
		SuccessRatio: float64(succeeded) / float64(len(branches)),
		Elapsed:      elapsed,
	}

	c.record(domain.PatternParallel, elapsed, agg.Success)

	event := domain.TaskEvent{
		TaskID:    task.ID,
		Pattern:   string(domain.PatternParallel),
		Workers:   workers,
		ElapsedMs: elapsed.Milliseconds(),
	}
	if agg.Success {
		c.emit(ctx, domain.MsgTaskCompleted, event)
	} else {
		event.Error = fmt.Sprintf("%d of %d branches failed", len(branches)-succeeded, len(branches))
		c.emit(ctx, domain.MsgTaskFailed, event)
	}

	return agg, nil
}

// executeMultiStep resolves the workflow pattern, makes sure its required
// workers are registered, and delegates execution to it.
func (c *Controller) executeMultiStep(ctx context.Context, task domain.Task) (*domain.CoordinatedResult, error) {
	if c.patterns == nil {
		return nil, ErrNoPatternRegistry
	}

	name := task.Workflow
	if name == "" {
		name = "pipeline"
	}
	pattern, ok := c.patterns.Pattern(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPatternNotFound, name)
	}

	workers := pattern.RequiredWorkers(task)
	for _, workerID := range workers {
		if c.registry.IsRegistered(workerID) {
			continue
		}
		if err := c.registry.Register(ctx, workerID); err != nil {
			return nil, fmt.Errorf("register required worker %s: %w", workerID, err)
		}
	}

	start := time.Now()
	result, err := pattern.Execute(ctx, workers, task)
	elapsed := time.Since(start)

	c.record(domain.PatternMultiStep, elapsed, err == nil)

	event := domain.TaskEvent{
		TaskID:    task.ID,
		Pattern:   string(domain.PatternMultiStep),
		Workers:   workers,
		ElapsedMs: elapsed.Milliseconds(),
	}
	if err != nil {
		event.Error = err.Error()
		c.emit(ctx, domain.MsgWorkflowFailed, event)
		return nil, fmt.Errorf("workflow %s: %w", name, err)
	}
	c.emit(ctx, domain.MsgWorkflowCompleted, event)

	return &domain.CoordinatedResult{
		TaskID:       task.ID,
		Pattern:      domain.PatternMultiStep,
		Success:      true,
		Workers:      workers,
		Output:       result.Output,
		MeanElapsed:  elapsed,
		MaxElapsed:   elapsed,
		SuccessRatio: 1,
		Elapsed:      elapsed,
	}, nil
}

// CreateChannel, Subscribe, Unsubscribe, Publish, Broadcast and History
// expose the bus to outer layers through the controller façade.

func (c *Controller) CreateChannel(name string, cfg *domain.ChannelConfig) error {
	return c.bus.CreateChannel(name, cfg)
}

func (c *Controller) Subscribe(subscriberID, channel string, handler bus.Handler) error {
	return c.bus.Subscribe(subscriberID, channel, handler)
}

func (c *Controller) Unsubscribe(subscriberID, channel string) error {
	return c.bus.Unsubscribe(subscriberID, channel)
}

func (c *Controller) Publish(ctx context.Context, senderID, channel, msgType string, payload map[string]any) (*domain.Message, error) {
	return c.bus.Publish(ctx, senderID, channel, msgType, payload)
}

func (c *Controller) Broadcast(ctx context.Context, senderID, msgType string, payload map[string]any) {
	c.bus.Broadcast(ctx, senderID, msgType, payload)
}

func (c *Controller) History(channel string, limit int) ([]domain.Message, error) {
	return c.bus.History(channel, limit)
}

// BusStatistics reports per-channel bus counters.
func (c *Controller) BusStatistics() []domain.ChannelStatistics {
	return c.bus.Statistics()
}

// WorkerStates returns state snapshots for the API surface.
func (c *Controller) WorkerStates() []domain.WorkerState {
	views := c.registry.Views()
	out := make([]domain.WorkerState, len(views))
	for i, v := range views {
		out[i] = v.State
	}
	return out
}

// RuntimeStatistics summarizes coordinator activity since start.
func (c *Controller) RuntimeStatistics() domain.RuntimeStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	byPattern := make(map[domain.CoordinationPattern]int64, len(c.byPattern))
	for k, v := range c.byPattern {
		byPattern[k] = v
	}

	stats := domain.RuntimeStatistics{
		TasksExecuted: c.executed,
		TasksFailed:   c.failed,
		ByPattern:     byPattern,
	}
	if c.executed > 0 {
		stats.AvgTaskMs = c.totalMs / float64(c.executed)
	}
	return stats
}

// Shutdown unregisters every active worker so their shutdown hooks run,
// then logs a final summary. In-flight work is bounded by task timeouts;
// the controller holds no background goroutines of its own.
func (c *Controller) Shutdown(ctx context.Context) error {
	for _, state := range c.WorkerStates() {
		c.registry.Unregister(ctx, state.WorkerID)
	}

	stats := c.RuntimeStatistics()
	c.logger.Info("coordinator shut down",
		zap.Int64("tasks_executed", stats.TasksExecuted),
		zap.Int64("tasks_failed", stats.TasksFailed))
	return nil
}

// record folds one coordinated execution into the runtime statistics.
func (c *Controller) record(pattern domain.CoordinationPattern, elapsed time.Duration, success bool) {
	c.mu.Lock()
	c.executed++
	if !success {
		c.failed++
	}
	c.byPattern[pattern]++
	c.totalMs += float64(elapsed.Milliseconds())
	c.mu.Unlock()

	if c.metrics != nil {
		status := "completed"
		if !success {
			status = "failed"
		}
		c.metrics.RecordTaskExecuted(string(pattern), status, elapsed)
	}
}

// emit publishes a coordination event; failures mirror to the errors channel.
func (c *Controller) emit(ctx context.Context, msgType string, event domain.TaskEvent) {
	if _, err := c.bus.Publish(ctx, "coordinator", domain.ChannelCoordination, msgType, event.Map()); err != nil {
		c.logger.Warn("failed to publish coordination event",
			zap.String("type", msgType),
			zap.String("task_id", event.TaskID),
			zap.Error(err))
	}

	if msgType == domain.MsgTaskFailed || msgType == domain.MsgWorkflowFailed {
		if _, err := c.bus.Publish(ctx, "coordinator", domain.ChannelErrors, msgType, event.Map()); err != nil {
			c.logger.Warn("failed to publish error event",
				zap.String("type", msgType),
				zap.String("task_id", event.TaskID),
				zap.Error(err))
		}
	}
}
