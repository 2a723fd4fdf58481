// Package registry tracks which workers are instantiated, their lifecycle
// state and rolling performance statistics. Lifecycle transitions follow
// unregistered → active → busy → active → inactive, with error reachable
// from any state when a shutdown hook or health probe fails.
package registry
