package routing

import "errors"

var (
	// ErrNoCandidateWorkers is returned when no eligible worker exists for a task.
	ErrNoCandidateWorkers = errors.New("no candidate workers")

	// ErrUnknownStrategy is returned when activating an unregistered strategy.
	ErrUnknownStrategy = errors.New("unknown routing strategy")
)
