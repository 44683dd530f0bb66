package backend

import (
	"errors"
	"fmt"
)

// Operation names used in errors.
const (
	OpAuthenticate = "authenticate"
	OpSendMessage  = "send message"
	OpHistory      = "get history"
	OpDataLog      = "get data log"
)

var fallbackMessages = map[string]string{
	OpAuthenticate: "Authentication failed",
	OpSendMessage:  "Failed to send message",
	OpHistory:      "Failed to fetch chat history",
	OpDataLog:      "Failed to fetch session data log",
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fallbackMessage(e.Op)
}

// NetworkError is a request that never produced a usable response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", fallbackMessage(e.Op), e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Error()
	}
	return err.Error()
}

func fallbackMessage(op string) string {
	if msg, ok := fallbackMessages[op]; ok {
		return msg
	}
	return "Request failed"
}
