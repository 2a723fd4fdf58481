package routing

import (
	"github.com/helixops/taskmesh/internal/application/registry"
	"github.com/helixops/taskmesh/internal/domain"
)

// healthFloor gates routing eligibility: a worker must score above it.
const healthFloor = 0.5

// eligible filters candidates on affinity, required capabilities and health.
func eligible(views []registry.WorkerView, task domain.Task) []registry.WorkerView {
	out := make([]registry.WorkerView, 0, len(views))
	for _, v := range views {
		if !v.Descriptor.HasAffinity(task.Type) {
			continue
		}
		if !v.Descriptor.HasCapabilities(task.RequiredCapabilities) {
			continue
		}
		if v.State.HealthScore <= healthFloor {
			continue
		}
		out = append(out, v)
	}
	return out
}

// score is the default weighted scoring function used by the
// performance-based and specialization-first strategies.
func score(v registry.WorkerView, task domain.Task) float64 {
	var s float64

	// Affinity and specialization
	if v.Descriptor.HasAffinity(task.Type) {
		s += 50
	}
	if v.Descriptor.Specialization == task.Type {
		s += 30
	}

	// Rolling performance: success rate plus a speed bonus that fades
	// linearly and disappears past ~50s average execution time.
	s += 15 * v.Metrics.SuccessRate
	speed := 5 - v.Metrics.AvgExecutionMs/10000
	if speed < 0 {
		speed = 0
	}
	s += speed

	// Health and current load
	s += 10 * v.State.HealthScore
	load := 10 - 2*float64(v.State.ActiveTasks)
	if load < 0 {
		load = 0
	}
	s += load

	// Priority alignment with worker tier
	switch task.Priority {
	case domain.PriorityCritical:
		if v.Descriptor.Tier.Rank() == 0 {
			s += 10
		}
	case domain.PriorityHigh:
		if v.Descriptor.Tier.Rank() < 2 {
			s += 5
		}
	}

	return s
}

// bestScored returns the id of the maximum-scoring candidate. Ties break by
// first-encountered order, which keeps selection stable.
func bestScored(candidates []registry.WorkerView, task domain.Task) string {
	best := 0
	bestScore := score(candidates[0], task)
	for i := 1; i < len(candidates); i++ {
		if s := score(candidates[i], task); s > bestScore {
			best, bestScore = i, s
		}
	}
	return candidates[best].Descriptor.ID
}
