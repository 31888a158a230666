package util

import (
	"errors"
	"fmt"
	"net/http"
)

// ClientError standardizes errors surfaced at the API-client boundary. The
// session core itself communicates through observable state, never through
// errors propagated to collaborator screens.
type ClientError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewClientError constructs a ClientError.
func NewClientError(code, message string, status int) *ClientError {
	return &ClientError{Code: code, Message: message, HTTPStatus: status}
}

// NewBadCredentials marks a rejected login attempt.
func NewBadCredentials() error {
	return NewClientError("BAD_CREDENTIALS", "invalid username or password", http.StatusUnauthorized)
}

// NewUnauthorized marks a 401 received mid-session; callers force logout.
func NewUnauthorized(message string) error {
	return NewClientError("UNAUTHORIZED", message, http.StatusUnauthorized)
}

// NewUnauthenticated marks an operation attempted without a usable token.
func NewUnauthenticated(message string) error {
	return NewClientError("UNAUTHENTICATED", message, http.StatusUnauthorized)
}

// NewNetworkError wraps a transport-level failure.
func NewNetworkError(err error) error {
	return &ClientError{
		Code:    "NETWORK_ERROR",
		Message: "request failed",
		Err:     err,
	}
}

// NewDecodeError wraps a malformed token or response body.
func NewDecodeError(err error) error {
	return &ClientError{
		Code:    "DECODE_FAILED",
		Message: "malformed payload",
		Err:     err,
	}
}

// NewUnexpectedStatus marks a non-success response outside the taxonomy.
func NewUnexpectedStatus(status int) error {
	return NewClientError("UNEXPECTED_STATUS", fmt.Sprintf("unexpected status %d", status), status)
}

// ToClientError converts generic errors to ClientError.
func ToClientError(err error) *ClientError {
	if err == nil {
		return nil
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return &ClientError{
		Code:    "NETWORK_ERROR",
		Message: "request failed",
		Err:     err,
	}
}

// IsUnauthorized reports whether the error carries a 401 status.
func IsUnauthorized(err error) bool {
	ce := ToClientError(err)
	return ce != nil && ce.HTTPStatus == http.StatusUnauthorized
}

// IsBadCredentials reports whether the error is a rejected login.
func IsBadCredentials(err error) bool {
	ce := ToClientError(err)
	return ce != nil && ce.Code == "BAD_CREDENTIALS"
}
