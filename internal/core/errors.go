package core

import (
	"errors"
	"fmt"
)

// Error codes carried to clients.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeDenied             = "denied"
	ErrCodeUnavailable        = "unavailable"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeUnsupportedVersion = "unsupported_version"
	ErrCodeInvalidMessage     = "invalid_message"
)

var (
	// ErrSessionInvalid is matched by every *SessionError.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrDenied hides whether a room exists or the caller just may not use it.
	ErrDenied = errors.New("request denied")
	// ErrBadRequest marks malformed client input.
	ErrBadRequest = errors.New("bad request")
	// ErrStoreUnavailable wraps store and resolver failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, msg)
}

// errorEvent maps a command failure to what the client is told.
// Denials never carry detail.
func errorEvent(err error) *CoreError {
	var ce *CoreError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, ErrBadRequest):
		return coreError(ErrCodeBadRequest, err.Error())
	case errors.Is(err, ErrDenied):
		return coreError(ErrCodeDenied, ErrDenied.Error())
	default:
		return coreError(ErrCodeUnavailable, "temporarily unavailable")
	}
}
