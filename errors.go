package goAuthClient

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for bad input and for server responses that are
	// missing required fields. Nothing is committed when it is returned.
	ErrValidation = errors.New("validation failed")
	// ErrAuth is returned when the identity service rejects the session. The
	// local session has been cleared by the time it is returned.
	ErrAuth = errors.New("authentication failed")
	// ErrNotAuthenticated is returned when no session exists and none could be restored.
	ErrNotAuthenticated = fmt.Errorf("%w: not authenticated", ErrAuth)
	// ErrTransient is returned for network failures and non-401 error statuses
	// during refresh.
	ErrTransient = errors.New("transient failure")
	// ErrProtocol is returned when a successful refresh response carries no token.
	ErrProtocol = errors.New("protocol violation")
	// ErrTimeout is returned when a call exceeds the configured client timeout.
	ErrTimeout = errors.New("request timed out")
	// ErrRequestFailed is the kind of an [APIError] for ordinary non-2xx responses.
	ErrRequestFailed = errors.New("request failed")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrEngineClosed is returned after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// APIError carries a status code and the server-reported message verbatim.
// errors.Is matches it against its Kind sentinel.
type APIError struct {
	Status  int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Unwrap returns the kind sentinel.
func (e *APIError) Unwrap() error {
	return e.Kind
}

func newAPIError(status int, message string, kind error) *APIError {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	if kind == nil {
		kind = ErrRequestFailed
	}
	return &APIError{Status: status, Message: message, Kind: kind}
}
