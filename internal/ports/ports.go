package ports

import (
	"context"
	"time"

	"github.com/helixops/taskmesh/internal/domain"
)

// HealthState is a worker handle's self-reported condition.
type HealthState string

const (
	HealthOperational HealthState = "operational"
	HealthDegraded    HealthState = "degraded"
	HealthDown        HealthState = "down"
)

// WorkerHandle is what a catalog instantiation yields: an executor the
// registry can probe and, via the coordinator, hand tasks to.
type WorkerHandle interface {
	ExecuteTask(ctx context.Context, task domain.Task) (string, error)
	HealthStatus(ctx context.Context) (HealthState, error)
}

// Stoppable is implemented by handles that need a shutdown hook. The
// registry feature-checks for it explicitly instead of probing at runtime.
type Stoppable interface {
	Shutdown(ctx context.Context) error
}

// Catalog is the external worker capability catalog. The core never
// inspects it beyond the descriptor fields.
type Catalog interface {
	Descriptor(workerID string) (domain.WorkerDescriptor, bool)
	Descriptors() []domain.WorkerDescriptor
	Instantiate(workerID string) (WorkerHandle, error)
}

// InvokeConfig carries per-call backend settings.
type InvokeConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Completion is a backend's answer to a single invocation.
type Completion struct {
	Content    string
	TokensUsed int
}

// Backend is one tier of the fallback cascade.
type Backend interface {
	ID() string
	Invoke(ctx context.Context, prompt string, cfg InvokeConfig) (*Completion, error)
}

// WorkflowPattern is a multi-step coordination pattern supplied by the
// external pattern registry.
type WorkflowPattern interface {
	RequiredWorkers(task domain.Task) []string
	Execute(ctx context.Context, workers []string, task domain.Task) (*domain.ExecutionResult, error)
}

// WorkflowPatterns resolves patterns by name.
type WorkflowPatterns interface {
	Pattern(name string) (WorkflowPattern, bool)
}

// MessageSink receives a copy of every bus publish, e.g. for mirroring to
// Redis Streams. Sinks are best-effort; failures never affect delivery.
type MessageSink interface {
	Relay(ctx context.Context, msg domain.Message) error
	Close() error
}

// MetricsCollector records orchestration telemetry.
type MetricsCollector interface {
	RecordTaskExecuted(pattern, status string, elapsed time.Duration)
	RecordBackendCall(backend string, tier, tokens int, elapsed time.Duration)
	RecordFallbackExhausted()
	RecordMessagePublished(channel string)
	RecordWorkerPoolStatus(active, busy, inactive int)
	RecordRouting(strategy string)
}

// NopMetrics discards all telemetry. Useful in tests.
type NopMetrics struct{}

func (NopMetrics) RecordTaskExecuted(string, string, time.Duration)      {}
func (NopMetrics) RecordBackendCall(string, int, int, time.Duration)     {}
func (NopMetrics) RecordFallbackExhausted()                              {}
func (NopMetrics) RecordMessagePublished(string)                         {}
func (NopMetrics) RecordWorkerPoolStatus(int, int, int)                  {}
func (NopMetrics) RecordRouting(string)                                  {}
