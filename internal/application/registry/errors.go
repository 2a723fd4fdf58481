package registry

import "errors"

// ErrUnknownWorker is returned when registration names a worker id that has
// no descriptor in the capability catalog.
var ErrUnknownWorker = errors.New("unknown worker")
