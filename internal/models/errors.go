package models

import "errors"

// Domain errors for the session and presence core. Handlers map these onto
// the API error envelope; the session service decides which are retryable.
var (
	// ErrInvalidActor is returned when an operation that requires a user id
	// receives an empty one. Never retried.
	ErrInvalidActor = errors.New("invalid actor: empty user id")

	// ErrSessionNotFound is returned when the referenced session id does not
	// exist. Never retried.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionInactive is returned on join attempts against an ended
	// session. Ending is terminal, so this is permanent for that id.
	ErrSessionInactive = errors.New("session is no longer active")

	// ErrInvalidSessionType is returned when a session is created with a type
	// outside the closed set.
	ErrInvalidSessionType = errors.New("invalid session type")

	// ErrStoreContention signals a serialization failure or row-lock conflict
	// in the underlying store. The session service retries these with fresh
	// reads, up to a bounded attempt count.
	ErrStoreContention = errors.New("store contention")

	// ErrInvalidCoordinates is returned when a location sample carries NaN or
	// infinite coordinates. Out-of-range but finite values are accepted.
	ErrInvalidCoordinates = errors.New("coordinates must be finite numbers")
)

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
