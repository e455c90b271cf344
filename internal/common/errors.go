package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Local input that failed validation before any network call.
	ErrValidation = errors.New("validation error")

	// Auth errors: missing token or a 401 from the coordinator. Invalidate
	// the session and the realtime socket; never auto-retried at the
	// request layer.
	ErrUnauthorized = errors.New("unauthorized")

	// Request-layer errors, matched with errors.Is.
	ErrTimeout   = errors.New("request timed out")
	ErrTransport = errors.New("network error")
	ErrProtocol  = errors.New("malformed response")
)
