package patterns

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/domain"
)

// StepFunc executes a task on a single worker. The coordination
// controller's ExecuteTask method has exactly this shape.
type StepFunc func(ctx context.Context, workerID string, task domain.Task) (*domain.ExecutionResult, error)

// Pipeline runs a task through a fixed sequence of workers, feeding each
// stage's output to the next stage as its payload.
type Pipeline struct {
	stages []string
	step   StepFunc
	logger *zap.Logger
}

// NewPipeline creates a pipeline over the given worker stages.
func NewPipeline(stages []string, step StepFunc, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		stages: stages,
		step:   step,
		logger: logger,
	}
}

// RequiredWorkers returns the pipeline's stage workers in order.
func (p *Pipeline) RequiredWorkers(_ domain.Task) []string {
	out := make([]string, len(p.stages))
	copy(out, p.stages)
	return out
}

// Execute runs the stages sequentially. The returned result carries the
// final stage's output with token and cost totals summed across stages.
func (p *Pipeline) Execute(ctx context.Context, workers []string, task domain.Task) (*domain.ExecutionResult, error) {
	start := time.Now()

	current := task
	var totalTokens int
	var totalCost float64
	var last *domain.ExecutionResult

	for i, workerID := range workers {
		result, err := p.step(ctx, workerID, current)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, workerID, err)
		}

		totalTokens += result.TokensUsed
		totalCost += result.Cost
		last = result

		p.logger.Debug("pipeline stage complete",
			zap.Int("stage", i),
			zap.String("worker_id", workerID),
			zap.Duration("elapsed", result.Elapsed))

		// Next stage consumes this stage's output.
		current.Payload = result.Output
	}

	if last == nil {
		return nil, fmt.Errorf("pipeline has no stages")
	}

	return &domain.ExecutionResult{
		Success:      true,
		Output:       last.Output,
		Backend:      last.Backend,
		FallbackTier: last.FallbackTier,
		TokensUsed:   totalTokens,
		Cost:         totalCost,
		Elapsed:      time.Since(start),
	}, nil
}
