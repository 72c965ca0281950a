package pipeline

import "errors"

// ErrInvalidConfig wraps every configuration contract violation.
var ErrInvalidConfig = errors.New("pipeline: invalid config")
