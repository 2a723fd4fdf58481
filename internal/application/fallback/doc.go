// Package fallback executes a unit of work against an ordered cascade of
// backends. Intermediate tier failures are recoverable; only exhaustion of
// the whole chain is fatal. Cost is computed per tier as tokens used times
// that tier's declared per-token rate, so callers can reason about cost
// even when a fallback occurred.
package fallback
