package workspace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoActiveSession indicates an operation needs a selected session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrInvalidCredentials indicates credentials failed local validation.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CredentialsError lists the credential fields that are missing or invalid.
type CredentialsError struct {
	Fields []string
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrInvalidCredentials, strings.Join(e.Fields, ", "))
}

func (e *CredentialsError) Unwrap() error {
	return ErrInvalidCredentials
}
