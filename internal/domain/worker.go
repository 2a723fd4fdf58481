package domain

import "time"

// WorkerTier is the ordinal priority class of a worker.
type WorkerTier string

const (
	TierPremium  WorkerTier = "premium"
	TierStandard WorkerTier = "standard"
	TierEconomy  WorkerTier = "economy"
)

// Rank returns the ordinal position of the tier, 0 being top.
func (t WorkerTier) Rank() int {
	switch t {
	case TierPremium:
		return 0
	case TierStandard:
		return 1
	default:
		return 2
	}
}

// CostTier classifies how expensive a worker is to run.
type CostTier string

const (
	CostHigh   CostTier = "high"
	CostMedium CostTier = "medium"
	CostLow    CostTier = "low"
)

// WorkerDescriptor is the immutable catalog entry for a worker.
// It is supplied by the capability catalog and never mutated by the core.
type WorkerDescriptor struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Specialization string     `json:"specialization"`
	Affinities     []string   `json:"affinities"`
	Capabilities   []string   `json:"capabilities"`
	Tier           WorkerTier `json:"tier"`
	CostTier       CostTier   `json:"cost_tier"`
}

// HasAffinity reports whether the worker declares an affinity for taskType.
func (d WorkerDescriptor) HasAffinity(taskType string) bool {
	for _, a := range d.Affinities {
		if a == taskType {
			return true
		}
	}
	return false
}

// HasCapabilities reports whether every required capability is present.
func (d WorkerDescriptor) HasCapabilities(required []string) bool {
	for _, req := range required {
		found := false
		for _, c := range d.Capabilities {
			if c == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// WorkerLifecycle is the lifecycle state of a registered worker.
type WorkerLifecycle string

const (
	WorkerUnregistered WorkerLifecycle = "unregistered"
	WorkerActive       WorkerLifecycle = "active"
	WorkerBusy         WorkerLifecycle = "busy"
	WorkerInactive     WorkerLifecycle = "inactive"
	WorkerError        WorkerLifecycle = "error"
)

// WorkerState is the mutable per-worker record kept by the registry.
// Records are created once per catalog entry and deactivated, never deleted.
type WorkerState struct {
	WorkerID       string          `json:"worker_id"`
	State          WorkerLifecycle `json:"state"`
	ActiveTasks    int             `json:"active_tasks"`
	CompletedTasks int64           `json:"completed_tasks"`
	AvgResponseMs  float64         `json:"avg_response_ms"`
	HealthScore    float64         `json:"health_score"`
}

// PerformanceMetrics holds rolling per-worker execution statistics.
// SuccessRate is a weighted running average so recent outcomes dominate,
// not a simple counter ratio.
type PerformanceMetrics struct {
	Executions      int64     `json:"executions"`
	SuccessRate     float64   `json:"success_rate"`
	AvgExecutionMs  float64   `json:"avg_execution_ms"`
	ErrorCount      int64     `json:"error_count"`
	LastExecutedAt  time.Time `json:"last_executed_at"`
}
