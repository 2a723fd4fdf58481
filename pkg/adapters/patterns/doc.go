// Package patterns provides the workflow pattern registry and the
// built-in multi-step patterns used by the coordination controller.
package patterns
