package engine

// Status is the generation pipeline's state. Exactly one Status exists per
// process; transitions are the only mutation and Idle is both the initial
// and terminal state.
type Status int

const (
	StatusIdle Status = iota
	StatusInitializing
	StatusGeneratingImage
	StatusUpscaling
	StatusFinalizing
	StatusCanceling
)

// String returns the status name used in events and logs.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusInitializing:
		return "INITIALIZING"
	case StatusGeneratingImage:
		return "GENERATING_IMAGE"
	case StatusUpscaling:
		return "UPSCALING"
	case StatusFinalizing:
		return "FINALIZING"
	case StatusCanceling:
		return "CANCELING"
	}
	return "UNKNOWN"
}
