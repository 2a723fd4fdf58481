// Package coordinator is the top-level façade over the orchestration core.
// It classifies incoming tasks as single, parallel or multi-step, drives
// the routing engine and fallback executor accordingly, folds outcomes
// into registry statistics, and announces every completion and failure on
// the message bus so observers can reconstruct a coordination timeline
// without polling.
package coordinator
