package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/application/bus"
	"github.com/helixops/taskmesh/internal/application/registry"
	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

// fakeHandle reports a fixed health state and echoes task payloads.
type fakeHandle struct {
	health ports.HealthState
}

func (h *fakeHandle) ExecuteTask(ctx context.Context, task domain.Task) (string, error) {
	return task.Payload, nil
}

func (h *fakeHandle) HealthStatus(ctx context.Context) (ports.HealthState, error) {
	return h.health, nil
}

// fakeCatalog serves descriptors and handles from maps.
type fakeCatalog struct {
	descriptors map[string]domain.WorkerDescriptor
	handles     map[string]*fakeHandle
}

func (c *fakeCatalog) Descriptor(id string) (domain.WorkerDescriptor, bool) {
	d, ok := c.descriptors[id]
	return d, ok
}

func (c *fakeCatalog) Descriptors() []domain.WorkerDescriptor {
	out := make([]domain.WorkerDescriptor, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		out = append(out, d)
	}
	return out
}

func (c *fakeCatalog) Instantiate(id string) (ports.WorkerHandle, error) {
	h, ok := c.handles[id]
	if !ok {
		return nil, errors.New("no such worker")
	}
	return h, nil
}

// fixture builds a registry-backed engine over the given descriptors, with
// every worker registered and operational.
func fixture(t *testing.T, descriptors ...domain.WorkerDescriptor) (*Engine, *registry.Registry, *fakeCatalog) {
	t.Helper()

	catalog := &fakeCatalog{
		descriptors: make(map[string]domain.WorkerDescriptor),
		handles:     make(map[string]*fakeHandle),
	}
	for _, d := range descriptors {
		catalog.descriptors[d.ID] = d
		catalog.handles[d.ID] = &fakeHandle{health: ports.HealthOperational}
	}

	b := bus.New(zap.NewNop(), ports.NopMetrics{})
	reg := registry.New(catalog, b, ports.NopMetrics{}, zap.NewNop())
	for _, d := range descriptors {
		if err := reg.Register(context.Background(), d.ID); err != nil {
			t.Fatalf("register %s: %v", d.ID, err)
		}
	}

	return NewEngine(reg, ports.NopMetrics{}, zap.NewNop()), reg, catalog
}

func desc(id, specialization string, affinities, capabilities []string, tier domain.WorkerTier) domain.WorkerDescriptor {
	return domain.WorkerDescriptor{
		ID:             id,
		Name:           id,
		Specialization: specialization,
		Affinities:     affinities,
		Capabilities:   capabilities,
		Tier:           tier,
	}
}

func TestSelectWorker_NoCandidates(t *testing.T) {
	e, _, _ := fixture(t,
		desc("w1", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
	)

	_, err := e.SelectWorker(domain.Task{Type: "translate"})
	if !errors.Is(err, ErrNoCandidateWorkers) {
		t.Errorf("expected ErrNoCandidateWorkers, got %v", err)
	}
}

func TestSelectWorker_FiltersOnCapabilities(t *testing.T) {
	e, _, _ := fixture(t,
		desc("plain", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
		desc("secure", "summarize", []string{"summarize"}, []string{"text", "security"}, domain.TierStandard),
	)

	got, err := e.SelectWorker(domain.Task{
		Type:                 "summarize",
		RequiredCapabilities: []string{"security"},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "secure" {
		t.Errorf("expected secure, got %s", got)
	}
}

func TestSelectWorker_FiltersOnHealth(t *testing.T) {
	e, reg, catalog := fixture(t,
		desc("healthy", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
		desc("shaky", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
	)

	// Degraded scores 0.5, which is at the floor, not above it.
	catalog.handles["shaky"].health = ports.HealthDegraded
	reg.HealthCheck(context.Background())

	got, err := e.SelectWorker(domain.Task{Type: "summarize"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "healthy" {
		t.Errorf("expected healthy, got %s", got)
	}
}

func TestSelectWorker_PerformanceBasedPrefersSpecialist(t *testing.T) {
	e, _, _ := fixture(t,
		desc("generalist", "write", []string{"write", "code-review"}, []string{"text"}, domain.TierStandard),
		desc("reviewer", "code-review", []string{"code-review"}, []string{"text"}, domain.TierStandard),
	)

	got, err := e.SelectWorker(domain.Task{Type: "code-review"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "reviewer" {
		t.Errorf("expected specialist reviewer, got %s", got)
	}
}

func TestSelectWorker_CriticalPriorityFavorsPremiumTier(t *testing.T) {
	e, _, _ := fixture(t,
		desc("economy", "summarize", []string{"summarize"}, []string{"text"}, domain.TierEconomy),
		desc("premium", "summarize", []string{"summarize"}, []string{"text"}, domain.TierPremium),
	)

	got, err := e.SelectWorker(domain.Task{Type: "summarize", Priority: domain.PriorityCritical})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "premium" {
		t.Errorf("expected premium tier for critical priority, got %s", got)
	}
}

func TestRoundRobin_CyclesThroughCandidates(t *testing.T) {
	e, _, _ := fixture(t,
		desc("a", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
		desc("b", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
		desc("c", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
	)
	if err := e.UseStrategy(StrategyRoundRobin); err != nil {
		t.Fatalf("use strategy: %v", err)
	}

	task := domain.Task{Type: "summarize"}
	want := []string{"a", "b", "c", "a"}
	for i, expected := range want {
		got, err := e.SelectWorker(task)
		if err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if got != expected {
			t.Errorf("call %d: expected %s, got %s", i, expected, got)
		}
	}
}

func TestLoadBalancing_PicksLeastLoaded(t *testing.T) {
	e, reg, _ := fixture(t,
		desc("a", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
		desc("b", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
		desc("c", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
	)
	if err := e.UseStrategy(StrategyLoadBalancing); err != nil {
		t.Fatalf("use strategy: %v", err)
	}

	reg.RecordStart("a")
	reg.RecordStart("a")
	reg.RecordStart("b")

	got, err := e.SelectWorker(domain.Task{Type: "summarize"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "c" {
		t.Errorf("expected idle worker c, got %s", got)
	}
}

func TestSpecializationFirst_FallsBackToScoring(t *testing.T) {
	e, reg, _ := fixture(t,
		desc("specialist", "translate", []string{"translate", "summarize"}, []string{"text"}, domain.TierStandard),
		desc("fast", "write", []string{"summarize"}, []string{"text"}, domain.TierStandard),
	)
	if err := e.UseStrategy(StrategySpecializationFirst); err != nil {
		t.Fatalf("use strategy: %v", err)
	}

	// translate has exactly one specialist.
	got, err := e.SelectWorker(domain.Task{Type: "translate"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "specialist" {
		t.Errorf("expected specialist, got %s", got)
	}

	// summarize has no specialist: scoring decides, and load tips it.
	reg.RecordStart("specialist")
	reg.RecordStart("specialist")
	reg.RecordStart("specialist")
	got, err = e.SelectWorker(domain.Task{Type: "summarize"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "fast" {
		t.Errorf("expected less loaded fast, got %s", got)
	}
}

func TestSelectWorkers_TopKInScoreOrder(t *testing.T) {
	e, reg, _ := fixture(t,
		desc("idle", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
		desc("loaded", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
		desc("off-topic", "translate", []string{"translate"}, []string{"text"}, domain.TierStandard),
	)

	reg.RecordStart("loaded")
	reg.RecordStart("loaded")

	got, err := e.SelectWorkers(domain.Task{Type: "summarize"}, 2)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 workers, got %d", len(got))
	}
	if got[0] != "idle" || got[1] != "loaded" {
		t.Errorf("expected [idle loaded], got %v", got)
	}
}

func TestSelectWorkers_ShortageIsSoft(t *testing.T) {
	e, _, _ := fixture(t,
		desc("only", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
	)

	got, err := e.SelectWorkers(domain.Task{Type: "summarize"}, 5)
	if err != nil {
		t.Fatalf("shortage should not be an error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 worker, got %d", len(got))
	}
}

func TestUseStrategy_Unknown(t *testing.T) {
	e, _, _ := fixture(t,
		desc("w1", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
	)

	if err := e.UseStrategy("astrology"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
	if e.ActiveStrategy() != StrategyPerformance {
		t.Errorf("active strategy should be unchanged, got %s", e.ActiveStrategy())
	}
}

func TestScore_SpeedBonusFades(t *testing.T) {
	fast := registry.WorkerView{
		Descriptor: desc("fast", "summarize", []string{"summarize"}, []string{"text"}, domain.TierStandard),
		State:      domain.WorkerState{HealthScore: 1.0},
		Metrics:    domain.PerformanceMetrics{SuccessRate: 1.0, AvgExecutionMs: 0, LastExecutedAt: time.Now()},
	}
	slow := fast
	slow.Metrics.AvgExecutionMs = 90000 // bonus bottoms out past ~50s

	task := domain.Task{Type: "summarize"}
	if score(fast, task) <= score(slow, task) {
		t.Error("faster worker should outscore slower one")
	}
	// The bonus never goes negative.
	if got := score(slow, task); got < 0 {
		t.Errorf("score should stay non-negative, got %f", got)
	}
}
