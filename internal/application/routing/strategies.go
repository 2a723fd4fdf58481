package routing

import (
	"sync"

	"github.com/helixops/taskmesh/internal/application/registry"
	"github.com/helixops/taskmesh/internal/domain"
)

// Strategy names registered by default.
const (
	StrategyPerformance         = "performance-based"
	StrategyLoadBalancing       = "load-balancing"
	StrategyRoundRobin          = "round-robin"
	StrategySpecializationFirst = "specialization-first"
)

// Strategy selects one worker from a non-empty candidate set. Strategies
// may carry state (round-robin does); implementations must be safe for
// concurrent use.
type Strategy interface {
	Name() string
	Select(candidates []registry.WorkerView, task domain.Task) string
}

// performanceBased applies the default weighted scoring function.
type performanceBased struct{}

func (performanceBased) Name() string { return StrategyPerformance }

func (performanceBased) Select(candidates []registry.WorkerView, task domain.Task) string {
	return bestScored(candidates, task)
}

// loadBalancing picks the candidate with the fewest in-flight tasks.
type loadBalancing struct{}

func (loadBalancing) Name() string { return StrategyLoadBalancing }

func (loadBalancing) Select(candidates []registry.WorkerView, task domain.Task) string {
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].State.ActiveTasks < candidates[best].State.ActiveTasks {
			best = i
		}
	}
	return candidates[best].Descriptor.ID
}

// roundRobin cycles through the candidate list. The cursor is an explicit
// field rather than a captured closure variable so its ownership is visible;
// it advances on every call regardless of the candidate set.
type roundRobin struct {
	mu     sync.Mutex
	cursor int
}

func (*roundRobin) Name() string { return StrategyRoundRobin }

func (s *roundRobin) Select(candidates []registry.WorkerView, task domain.Task) string {
	s.mu.Lock()
	idx := s.cursor % len(candidates)
	s.cursor++
	s.mu.Unlock()
	return candidates[idx].Descriptor.ID
}

// specializationFirst restricts to candidates whose primary specialization
// matches the task type when any exist, then applies the default scoring.
type specializationFirst struct{}

func (specializationFirst) Name() string { return StrategySpecializationFirst }

func (specializationFirst) Select(candidates []registry.WorkerView, task domain.Task) string {
	specialized := make([]registry.WorkerView, 0, len(candidates))
	for _, c := range candidates {
		if c.Descriptor.Specialization == task.Type {
			specialized = append(specialized, c)
		}
	}
	if len(specialized) > 0 {
		candidates = specialized
	}
	return bestScored(candidates, task)
}
