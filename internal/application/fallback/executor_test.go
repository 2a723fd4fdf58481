package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

// fakeBackend fails a scripted number of times before succeeding.
type fakeBackend struct {
	id       string
	failures int
	calls    int
	delay    time.Duration
	tokens   int
}

func (b *fakeBackend) ID() string { return b.id }

func (b *fakeBackend) Invoke(ctx context.Context, prompt string, cfg ports.InvokeConfig) (*ports.Completion, error) {
	b.calls++
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.calls <= b.failures {
		return nil, errors.New("backend overloaded")
	}
	return &ports.Completion{Content: "answer from " + b.id, TokensUsed: b.tokens}, nil
}

func TestRun_FirstTierSucceeds(t *testing.T) {
	primary := &fakeBackend{id: "primary", tokens: 100}
	secondary := &fakeBackend{id: "secondary", tokens: 100}
	e := NewExecutor([]Tier{
		{Backend: primary, Rate: 0.001},
		{Backend: secondary, Rate: 0.0005},
	}, 0, ports.NopMetrics{}, zap.NewNop())

	result, err := e.Run(context.Background(), domain.Task{ID: "t1", Payload: "hi"}, domain.FallbackChain{"primary", "secondary"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Backend != "primary" || result.FallbackTier != 0 {
		t.Errorf("expected primary tier 0, got %s tier %d", result.Backend, result.FallbackTier)
	}
	if secondary.calls != 0 {
		t.Errorf("success should short-circuit, secondary called %d times", secondary.calls)
	}
	if diff := result.Cost - 0.1; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected cost 0.1 (100 tokens at 0.001), got %f", result.Cost)
	}
}

func TestRun_FallsThroughToLastTier(t *testing.T) {
	primary := &fakeBackend{id: "primary", failures: 10, delay: 5 * time.Millisecond}
	secondary := &fakeBackend{id: "secondary", failures: 10, delay: 5 * time.Millisecond}
	local := &fakeBackend{id: "local", tokens: 40, delay: 5 * time.Millisecond}
	e := NewExecutor([]Tier{
		{Backend: primary, Rate: 0.001},
		{Backend: secondary, Rate: 0.0005},
		{Backend: local, Rate: 0},
	}, 0, ports.NopMetrics{}, zap.NewNop())

	result, err := e.Run(context.Background(), domain.Task{ID: "t1", Payload: "hi"}, domain.FallbackChain{"primary", "secondary", "local"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Backend != "local" || result.FallbackTier != 2 {
		t.Errorf("expected local tier 2, got %s tier %d", result.Backend, result.FallbackTier)
	}
	if result.Cost != 0 {
		t.Errorf("local tier is free, got cost %f", result.Cost)
	}
	// Elapsed spans every attempt, not just the winning one.
	if result.Elapsed < 15*time.Millisecond {
		t.Errorf("elapsed should cover all three attempts, got %v", result.Elapsed)
	}
}

func TestRun_AllTiersExhausted(t *testing.T) {
	primary := &fakeBackend{id: "primary", failures: 10}
	local := &fakeBackend{id: "local", failures: 10}
	e := NewExecutor([]Tier{
		{Backend: primary, Rate: 0.001},
		{Backend: local, Rate: 0},
	}, 0, ports.NopMetrics{}, zap.NewNop())

	_, err := e.Run(context.Background(), domain.Task{ID: "t1"}, domain.FallbackChain{"primary", "local"})
	if err == nil {
		t.Fatal("expected error")
	}

	var exhausted *AllTiersExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected AllTiersExhaustedError, got %T", err)
	}
	if len(exhausted.Attempts) != 2 {
		t.Fatalf("expected 2 recorded attempts, got %d", len(exhausted.Attempts))
	}

	// The aggregate unwraps to the last tier's failure.
	var tierErr *BackendExecutionError
	if !errors.As(err, &tierErr) {
		t.Fatal("expected a BackendExecutionError in the chain")
	}
	if tierErr.Backend != "local" || tierErr.Tier != 1 {
		t.Errorf("expected last attempt local/1, got %s/%d", tierErr.Backend, tierErr.Tier)
	}
}

func TestRun_UnknownBackendCountsAsFailedAttempt(t *testing.T) {
	local := &fakeBackend{id: "local", tokens: 10}
	e := NewExecutor([]Tier{
		{Backend: local, Rate: 0},
	}, 0, ports.NopMetrics{}, zap.NewNop())

	// The chain names a backend the executor never saw; the cascade skips
	// past it and still reaches local.
	result, err := e.Run(context.Background(), domain.Task{ID: "t1"}, domain.FallbackChain{"ghost", "local"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Backend != "local" || result.FallbackTier != 1 {
		t.Errorf("expected local tier 1, got %s tier %d", result.Backend, result.FallbackTier)
	}
}

func TestRun_UnknownBackendAloneExhausts(t *testing.T) {
	e := NewExecutor(nil, 0, ports.NopMetrics{}, zap.NewNop())

	_, err := e.Run(context.Background(), domain.Task{ID: "t1"}, domain.FallbackChain{"ghost"})
	var exhausted *AllTiersExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected AllTiersExhaustedError, got %v", err)
	}
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend in the chain, got %v", err)
	}
}

func TestRun_EmptyChain(t *testing.T) {
	e := NewExecutor(nil, 0, ports.NopMetrics{}, zap.NewNop())

	_, err := e.Run(context.Background(), domain.Task{ID: "t1"}, nil)
	if err == nil {
		t.Fatal("empty chain should fail")
	}
}

func TestRun_PerTierTimeout(t *testing.T) {
	slow := &slowBackend{id: "slow"}
	fast := &fakeBackend{id: "fast", tokens: 10}
	e := NewExecutor([]Tier{
		{Backend: slow, Rate: 0},
		{Backend: fast, Rate: 0},
	}, 20*time.Millisecond, ports.NopMetrics{}, zap.NewNop())

	result, err := e.Run(context.Background(), domain.Task{ID: "t1"}, domain.FallbackChain{"slow", "fast"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Backend != "fast" {
		t.Errorf("timeout on slow tier should fall through to fast, got %s", result.Backend)
	}
}

// slowBackend blocks until its context expires.
type slowBackend struct {
	id string
}

func (b *slowBackend) ID() string { return b.id }

func (b *slowBackend) Invoke(ctx context.Context, prompt string, cfg ports.InvokeConfig) (*ports.Completion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
