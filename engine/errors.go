package engine

import "errors"

// ErrCanceled is the control-flow signal raised when a cancellation
// request is observed at a suspension point. It always wins over retry and
// is never surfaced as a failure to the caller.
var ErrCanceled = errors.New("engine: generation canceled")

// AlreadyGeneratingError is returned when Generate is called while a
// pipeline is in flight. The conflicting call changes no state.
type AlreadyGeneratingError struct {
	Status Status
}

func (e *AlreadyGeneratingError) Error() string {
	return "engine: a generation is already in flight (status " + e.Status.String() + ")"
}
