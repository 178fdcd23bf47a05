package httpapi

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("httpapi: required parameter is nil")

	// ErrNotRegistry indicates the application does not run the registry program.
	ErrNotRegistry = errors.New("httpapi: application is not a registry")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = errors.New("httpapi: bad request")
)
