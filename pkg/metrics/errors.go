package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownStage = errors.New("metrics: unknown pipeline stage")
)
