package session

import "errors"

var (
	// ErrSessionNotFound indicates the session isn't in the registry.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")
)
