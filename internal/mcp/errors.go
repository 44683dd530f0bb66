package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/orgchat/internal/backend"
	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
	"github.com/rpggio/orgchat/internal/domain/session"
	"github.com/rpggio/orgchat/internal/repository"
	"github.com/rpggio/orgchat/internal/workspace"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	var credErr *workspace.CredentialsError
	var backendErr *backend.APIError
	var netErr *backend.NetworkError
	var perr *repository.PersistenceError

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &credErr):
		return &APIError{Code: "VALIDATION", Message: "invalid credentials", Details: map[string]any{"missing": credErr.Fields}, RecoveryHint: "Provide the missing fields"}
	case errors.Is(err, chat.ErrEmptyMessage):
		return &APIError{Code: "VALIDATION", Message: "message is empty", RecoveryHint: "Send non-blank text"}
	case errors.Is(err, session.ErrInvalidInput), errors.Is(err, datalog.ErrNoSession):
		return &APIError{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, chat.ErrSendInFlight):
		return &APIError{Code: "SEND_IN_FLIGHT", Message: "a message is already being sent", RecoveryHint: "Wait for the previous reply"}
	case errors.Is(err, workspace.ErrNoActiveSession):
		return &APIError{Code: "NO_ACTIVE_SESSION", Message: "no active session", RecoveryHint: "Call connect or switch_session first"}
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, chat.ErrUnknownSession):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found", RecoveryHint: "Call list_sessions for valid ids"}
	case errors.As(err, &backendErr):
		return &APIError{Code: "BACKEND_ERROR", Message: backend.Message(err), Details: map[string]any{"op": backendErr.Op, "status": backendErr.StatusCode}}
	case errors.As(err, &netErr):
		return &APIError{Code: "NETWORK_ERROR", Message: backend.Message(err), RecoveryHint: "Check that the backend is reachable"}
	case errors.As(err, &perr):
		return &APIError{Code: "PERSISTENCE_ERROR", Message: perr.Error()}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

// warningFor renders a non-fatal error for inclusion in a successful result.
func warningFor(err error) string {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr.Message
	}
	return err.Error()
}

func isBackendFailure(err error) bool {
	var backendErr *backend.APIError
	var netErr *backend.NetworkError
	return errors.As(err, &backendErr) || errors.As(err, &netErr)
}
