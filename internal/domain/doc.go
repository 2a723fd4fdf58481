// Package domain holds the core data model of the orchestration core:
// worker descriptors and state, tasks and execution results, bus channels
// and messages. Types here carry no behavior beyond simple accessors and
// are shared by every application component and adapter.
package domain
