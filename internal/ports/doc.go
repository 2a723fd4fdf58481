// Package ports defines the interfaces between the orchestration core and
// its external collaborators: the capability catalog, worker handles,
// execution backends, workflow patterns, message sinks and the metrics
// collector. Adapters under pkg/adapters implement these interfaces.
package ports
