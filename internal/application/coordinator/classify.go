package coordinator

import "github.com/helixops/taskmesh/internal/domain"

// classify maps a task to a coordination pattern using declarative
// heuristics: an explicit workflow name or complexity marker means
// multi-step; a subtask hint or large input means parallel fan-out;
// everything else runs single.
func (c *Controller) classify(task domain.Task) domain.CoordinationPattern {
	if task.Workflow != "" || task.Complexity == domain.ComplexityComplex {
		return domain.PatternMultiStep
	}
	if task.Subtasks > 1 || task.InputSize >= c.parallelThreshold {
		return domain.PatternParallel
	}
	return domain.PatternSingle
}

// fanoutWidth computes the parallel width as the minimum of the heuristic
// width and the count of healthy, low-load workers, floored at one.
func (c *Controller) fanoutWidth(task domain.Task) int {
	width := task.Subtasks
	if width < 2 {
		width = 2
		if c.parallelThreshold > 0 {
			if w := task.InputSize / c.parallelThreshold; w > width {
				width = w
			}
		}
	}
	if width > c.maxFanout {
		width = c.maxFanout
	}

	available := 0
	for _, v := range c.registry.Views() {
		if v.State.HealthScore > 0.5 && v.State.ActiveTasks < lowLoadMax {
			available++
		}
	}
	if available < width {
		width = available
	}
	if width < 1 {
		width = 1
	}
	return width
}
