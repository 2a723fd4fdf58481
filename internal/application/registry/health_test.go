package registry

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

func TestSweeper_RefreshesHealthScores(t *testing.T) {
	catalog := newFakeCatalog("w1")
	r := newTestRegistry(t, catalog)
	if err := r.Register(context.Background(), "w1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Worker degrades after registration; the sweep should notice.
	catalog.handles["w1"].health = ports.HealthDown

	s := NewSweeper(r, 10*time.Millisecond, zap.NewNop())
	s.Start()
	defer s.Stop()

	deadline := time.After(time.Second)
	for {
		state, _ := r.State("w1")
		if state.HealthScore == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("sweep never refreshed health, still %f", state.HealthScore)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSweeper_StartAndStopAreIdempotent(t *testing.T) {
	r := newTestRegistry(t, newFakeCatalog("w1"))
	s := NewSweeper(r, time.Hour, zap.NewNop())

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSweep_SkipsUnregisteredWorkers(t *testing.T) {
	catalog := newFakeCatalog("registered", "dormant")
	r := newTestRegistry(t, catalog)
	if err := r.Register(context.Background(), "registered"); err != nil {
		t.Fatalf("register: %v", err)
	}

	results := r.HealthCheck(context.Background())
	if len(results) != 1 {
		t.Fatalf("expected 1 probed worker, got %d", len(results))
	}
	if _, probed := results["dormant"]; probed {
		t.Error("unregistered worker should not be probed")
	}

	state, _ := r.State("dormant")
	if state.State != domain.WorkerUnregistered {
		t.Errorf("dormant worker should stay unregistered, got %s", state.State)
	}
}
