package domain

import "time"

// TaskPriority is the priority class of a task.
type TaskPriority string

const (
	PriorityCritical TaskPriority = "critical"
	PriorityHigh     TaskPriority = "high"
	PriorityNormal   TaskPriority = "normal"
	PriorityLow      TaskPriority = "low"
)

// Task is a typed unit of work submitted for routing and execution.
type Task struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Priority TaskPriority `json:"priority"`
	Payload  string       `json:"payload"`

	// RequiredCapabilities narrows routing to workers exposing all of them.
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`

	// Sizing hints used by the coordinator for classification and fan-out.
	InputSize int    `json:"input_size,omitempty"`
	Subtasks  int    `json:"subtasks,omitempty"`
	Complexity string `json:"complexity,omitempty"`

	// Workflow names a multi-step pattern; empty for plain tasks.
	Workflow string `json:"workflow,omitempty"`
}

// ComplexityComplex marks a task for the multi-step coordination pattern.
const ComplexityComplex = "complex"

// CoordinationPattern is the coordinator's classification of a task.
type CoordinationPattern string

const (
	PatternSingle    CoordinationPattern = "single"
	PatternParallel  CoordinationPattern = "parallel"
	PatternMultiStep CoordinationPattern = "multi-step"
)

// FallbackChain is an ordered list of backend identifiers. Execution always
// starts at index 0.
type FallbackChain []string

// ExecutionResult is the outcome of running a task through the fallback
// cascade. FallbackTier is zero-based; 0 means the primary backend served it.
type ExecutionResult struct {
	Success      bool          `json:"success"`
	Output       string        `json:"output"`
	Backend      string        `json:"backend"`
	FallbackTier int           `json:"fallback_tier"`
	TokensUsed   int           `json:"tokens_used"`
	Cost         float64       `json:"cost"`
	Elapsed      time.Duration `json:"elapsed"`
}

// BranchResult is one worker's outcome inside a parallel fan-out.
type BranchResult struct {
	WorkerID string           `json:"worker_id"`
	Result   *ExecutionResult `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// CoordinatedResult aggregates the outcome of a coordinated execution.
// For parallel tasks Success holds iff every branch succeeded.
type CoordinatedResult struct {
	TaskID       string              `json:"task_id"`
	Pattern      CoordinationPattern `json:"pattern"`
	Success      bool                `json:"success"`
	Workers      []string            `json:"workers"`
	Branches     []BranchResult      `json:"branches,omitempty"`
	Output       string              `json:"output,omitempty"`
	MeanElapsed  time.Duration       `json:"mean_elapsed"`
	MaxElapsed   time.Duration       `json:"max_elapsed"`
	SuccessRatio float64             `json:"success_ratio"`
	Elapsed      time.Duration       `json:"elapsed"`
}

// RuntimeStatistics summarizes coordinator activity since process start.
type RuntimeStatistics struct {
	TasksExecuted int64                         `json:"tasks_executed"`
	TasksFailed   int64                         `json:"tasks_failed"`
	ByPattern     map[CoordinationPattern]int64 `json:"by_pattern"`
	AvgTaskMs     float64                       `json:"avg_task_ms"`
}
