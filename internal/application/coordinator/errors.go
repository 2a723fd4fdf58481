package coordinator

import "errors"

var (
	// ErrPatternNotFound is returned when a multi-step task names a workflow
	// pattern the pattern registry does not know.
	ErrPatternNotFound = errors.New("workflow pattern not found")

	// ErrNoPatternRegistry is returned when a multi-step task arrives but no
	// pattern registry was configured.
	ErrNoPatternRegistry = errors.New("no workflow pattern registry configured")
)
