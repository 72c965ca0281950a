package normalize

import "errors"

// ErrInvalidRule is returned when a suffix or generic word cannot be compiled.
var ErrInvalidRule = errors.New("normalize: invalid rule")
