package fallback

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

// Tier binds a backend to its per-token cost rate and invocation settings.
type Tier struct {
	Backend ports.Backend
	Rate    float64
	Invoke  ports.InvokeConfig
}

// Executor runs a task against an ordered cascade of backends, falling
// through on failure and capturing per-tier cost and latency.
type Executor struct {
	tiers   map[string]Tier // by backend id
	timeout time.Duration   // per-tier deadline, 0 for none
	metrics ports.MetricsCollector
	logger  *zap.Logger
}

// NewExecutor creates an executor over the given backend tiers.
func NewExecutor(tiers []Tier, timeout time.Duration, metrics ports.MetricsCollector, logger *zap.Logger) *Executor {
	byID := make(map[string]Tier, len(tiers))
	for _, t := range tiers {
		byID[t.Backend.ID()] = t
	}
	return &Executor{
		tiers:   byID,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Run attempts the task against chain[0], advancing one tier per failure.
// The first success short-circuits the cascade; Elapsed on the result
// covers every attempt made, not just the winning one. If all tiers fail,
// the returned error is an *AllTiersExhaustedError.
func (e *Executor) Run(ctx context.Context, task domain.Task, chain domain.FallbackChain) (*domain.ExecutionResult, error) {
	start := time.Now()
	var attempts []*BackendExecutionError

	for i, backendID := range chain {
		tier, ok := e.tiers[backendID]
		if !ok {
			attempts = append(attempts, &BackendExecutionError{
				Backend: backendID,
				Tier:    i,
				Err:     fmt.Errorf("%w: %s", ErrUnknownBackend, backendID),
			})
			continue
		}

		completion, err := e.invoke(ctx, tier, task.Payload)
		if err != nil {
			attempt := &BackendExecutionError{Backend: backendID, Tier: i, Err: err}
			attempts = append(attempts, attempt)
			e.logger.Warn("backend tier failed, falling through",
				zap.String("task_id", task.ID),
				zap.String("backend", backendID),
				zap.Int("tier", i),
				zap.Error(err))
			continue
		}

		elapsed := time.Since(start)
		if e.metrics != nil {
			e.metrics.RecordBackendCall(backendID, i, completion.TokensUsed, elapsed)
		}
		if i > 0 {
			e.logger.Info("task served by fallback tier",
				zap.String("task_id", task.ID),
				zap.String("backend", backendID),
				zap.Int("tier", i),
				zap.Int("failed_attempts", len(attempts)))
		}

		return &domain.ExecutionResult{
			Success:      true,
			Output:       completion.Content,
			Backend:      backendID,
			FallbackTier: i,
			TokensUsed:   completion.TokensUsed,
			Cost:         float64(completion.TokensUsed) * tier.Rate,
			Elapsed:      elapsed,
		}, nil
	}

	if e.metrics != nil {
		e.metrics.RecordFallbackExhausted()
	}
	if len(attempts) == 0 {
		return nil, fmt.Errorf("empty fallback chain")
	}
	return nil, &AllTiersExhaustedError{Attempts: attempts}
}

// invoke calls one backend under the per-tier deadline.
func (e *Executor) invoke(ctx context.Context, tier Tier, prompt string) (*ports.Completion, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return tier.Backend.Invoke(ctx, prompt, tier.Invoke)
}
