package models

import "errors"

// Sentinel errors shared across services and handlers. Handlers map
// these to HTTP statuses; services wrap lower-level errors around them.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrForbidden       = errors.New("operation forbidden")
	ErrPageNotFound    = errors.New("page not found")
	ErrLastPage        = errors.New("cannot delete the last page of a story")
	ErrPageSetMismatch = errors.New("page order does not match the story's pages")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInternalServer  = errors.New("internal server error")
)
