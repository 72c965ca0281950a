package publish

import "errors"

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("publish: invalid thresholds")
