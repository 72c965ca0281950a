package service

import "errors"

// ErrStopped is returned when starting a service that was stopped.
var ErrStopped = errors.New("service stopped")
