package patterns

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/domain"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Pattern("pipeline"); ok {
		t.Error("empty registry should resolve nothing")
	}

	p := NewPipeline([]string{"a"}, nil, zap.NewNop())
	r.Register("pipeline", p)

	got, ok := r.Pattern("pipeline")
	if !ok || got != p {
		t.Error("registered pattern should resolve")
	}
}

func TestPipeline_ChainsStageOutputs(t *testing.T) {
	var prompts []string
	step := func(ctx context.Context, workerID string, task domain.Task) (*domain.ExecutionResult, error) {
		prompts = append(prompts, task.Payload)
		return &domain.ExecutionResult{
			Success:    true,
			Output:     task.Payload + "+" + workerID,
			Backend:    "primary",
			TokensUsed: 10,
			Cost:       0.01,
		}, nil
	}

	p := NewPipeline([]string{"analyst", "writer"}, step, zap.NewNop())
	workers := p.RequiredWorkers(domain.Task{})

	result, err := p.Execute(context.Background(), workers, domain.Task{ID: "t1", Payload: "raw"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	// Each stage consumes the previous stage's output.
	if len(prompts) != 2 || prompts[0] != "raw" || prompts[1] != "raw+analyst" {
		t.Errorf("unexpected stage inputs: %v", prompts)
	}
	if result.Output != "raw+analyst+writer" {
		t.Errorf("unexpected final output: %s", result.Output)
	}
	if result.TokensUsed != 20 {
		t.Errorf("expected summed tokens 20, got %d", result.TokensUsed)
	}
	if diff := result.Cost - 0.02; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected summed cost 0.02, got %f", result.Cost)
	}
}

func TestPipeline_StageFailureAborts(t *testing.T) {
	calls := 0
	step := func(ctx context.Context, workerID string, task domain.Task) (*domain.ExecutionResult, error) {
		calls++
		if workerID == "writer" {
			return nil, errors.New("writer offline")
		}
		return &domain.ExecutionResult{Success: true, Output: "ok"}, nil
	}

	p := NewPipeline([]string{"analyst", "writer", "reviewer"}, step, zap.NewNop())

	_, err := p.Execute(context.Background(), p.RequiredWorkers(domain.Task{}), domain.Task{ID: "t1"})
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls != 2 {
		t.Errorf("later stages should not run after a failure, got %d calls", calls)
	}
}
