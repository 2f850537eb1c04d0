package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNoSession occurs when a request reaches a handler without session middleware.
	ErrNoSession = errors.New("session missing")
	// ErrNotAuthenticated indicates that no credential is stored for the session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// GenericErrorMessage is shown when a failure carries no server message.
const GenericErrorMessage = "Ocurrió un error inesperado. Intenta nuevamente."

// UserMessage returns the message an error wants to show to the user, or
// fallback when it carries none.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	if fallback == "" {
		return GenericErrorMessage
	}
	return fallback
}
