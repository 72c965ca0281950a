package repository

import "errors"

// Sentinel kinds for profile store errors.
var (
	ErrNotFound     = errors.New("profile not found")
	ErrInvalidLimit = errors.New("invalid profile limit")
	ErrInvalidSlug  = errors.New("invalid profile slug")
)
