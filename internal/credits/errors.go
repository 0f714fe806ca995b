package credits

import "errors"

var (
	// ErrInsufficientCredits is returned when a debit would take the
	// balance below zero.
	ErrInsufficientCredits = errors.New("insufficient credits")
)
