package analyses

import "errors"

var (
	ErrNotFound = errors.New("analysis not found")

	// ErrTerminalConflict is returned when a second terminal transition
	// is attempted on the same analysis.
	ErrTerminalConflict = errors.New("analysis already in a terminal state")
)
