package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the credential was missing, expired or revoked.
	// Stored credentials are already cleared when it is returned.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrForbidden means the credential lacks the role for the call.
	ErrForbidden = errors.New("api: forbidden")
	// ErrNotFound means the addressed document does not exist.
	ErrNotFound = errors.New("api: not found")
	// ErrRejected covers validation and business rule failures.
	ErrRejected = errors.New("api: request rejected")
	// ErrUnavailable covers transport failures, 5xx answers and an open breaker.
	ErrUnavailable = errors.New("api: unavailable")
)

// Error is a non-successful answer of the API.
type Error struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("api: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// UserMessage is the message sent by the server, if any.
func (e *Error) UserMessage() string {
	return e.Message
}

// Unwrap maps the HTTP status onto the package sentinels.
func (e *Error) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status >= http.StatusInternalServerError:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err ended the session.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
