package gait

import "errors"

// Error classes. Stage errors wrap one of these so callers can classify a
// failure with errors.Is without parsing messages.
var (
	// ErrInput covers unreadable or undecodable video, stage failures and
	// runs cut short by their deadline.
	ErrInput = errors.New("input error")

	// ErrInsufficientData is returned when too few frames were sampled to
	// compute signals.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelUnavailable marks a pose model that is not configured or
	// failed to produce output. It never escapes the pipeline: the
	// heuristic path runs instead.
	ErrModelUnavailable = errors.New("pose model unavailable")
)
