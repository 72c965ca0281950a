package scoring

import "errors"

// Sentinel kinds for catalog construction errors.
var (
	ErrEmptyCatalog   = errors.New("scoring: catalog has no signals")
	ErrInvalidSignal  = errors.New("scoring: invalid signal")
	ErrDuplicateID    = errors.New("scoring: duplicate signal id")
	ErrUnknownSignal  = errors.New("scoring: unknown signal id")
	ErrInvalidPattern = errors.New("scoring: invalid pattern")
)
