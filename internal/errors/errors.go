package errors

import "errors"

// This package defines a centralized set of sentinel errors for the front-end.
// Services return these (wrapped with context) so the API layer can map them to
// HTTP responses with `errors.Is()` without knowing where the failure came from.

var (
	// ErrNotFound signifies that a requested resource could not be located,
	// either locally or on the conversation backend.
	// This is typically mapped to a 404 Not Found HTTP status.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that input data provided by a client failed
	// validation.
	// This is typically mapped to a 400 Bad Request HTTP status.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signifies that an operation conflicts with the current state
	// of the chat (e.g. resending while no edit is in progress).
	// This is typically mapped to a 409 Conflict HTTP status.
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized signifies that the caller is not logged in or the
	// backend rejected the supplied credentials.
	// This is typically mapped to a 401 Unauthorized HTTP status.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPermission signifies that the authenticated user is not authorized
	// to perform the requested action.
	// This is typically mapped to a 403 Forbidden HTTP status.
	ErrPermission = errors.New("permission denied")

	// ErrUpstream signifies that the REST backend failed or timed out.
	// This is typically mapped to a 502 Bad Gateway HTTP status.
	ErrUpstream = errors.New("upstream request failed")

	// ErrRateLimited signifies that a browser session is submitting messages
	// faster than the configured send rate.
	// This is typically mapped to a 429 Too Many Requests HTTP status.
	ErrRateLimited = errors.New("too many requests")

	// ErrInternal signifies an unexpected error. This is a generic error used to
	// prevent leaking implementation details to the browser.
	// This is typically mapped to a 500 Internal Server Error HTTP status.
	ErrInternal = errors.New("internal server error")
)
