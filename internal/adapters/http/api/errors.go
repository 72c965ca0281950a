package api

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrInternal     = errors.New("internal error")
)

// NewKind returns kind annotated with the failing operation.
func NewKind(op string, kind error) error {
	return eris.Wrap(kind, op)
}

// WrapKind classifies cause under kind. errors.Is matches kind.
func WrapKind(op string, kind, cause error) error {
	return eris.Wrapf(kind, "%s: %v", op, cause)
}

// Wrap annotates err with the failing operation.
func Wrap(op string, err error) error {
	return eris.Wrap(err, op)
}
