package game

import "errors"

// Sentinel errors for game operations.
var (
	ErrInvalidTransition = errors.New("operation not allowed in current game phase")
	ErrEmptyPool         = errors.New("labeled image pool is empty")
)
