package access

import (
	"fmt"
	"time"

	"github.com/BradenHooton/giftgate/internal/models"
)

// AttemptError is the single user-facing failure of one access attempt.
// It unwraps to one of models.ErrRateLimited, models.ErrInvalidFormat,
// models.ErrInvalidCredential or models.ErrNetwork.
type AttemptError struct {
	Kind       error
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *AttemptError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.Error()
}

func (e *AttemptError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func rateLimitedError(retryAfter time.Duration) *AttemptError {
	minutes := int((retryAfter + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return &AttemptError{
		Kind:       models.ErrRateLimited,
		Message:    fmt.Sprintf("Too many attempts. Please try again in %d minute(s).", minutes),
		RetryAfter: retryAfter,
	}
}

func invalidFormatError(method models.ValidationMethod) *AttemptError {
	msg := "Please enter your access details."
	switch method {
	case models.MethodEmail:
		msg = "Please enter a valid email address."
	case models.MethodEmployeeID:
		msg = "Please enter a valid employee ID."
	case models.MethodSerialCard:
		msg = "Please enter a valid serial number."
	}
	return &AttemptError{
		Kind:    models.ErrInvalidFormat,
		Message: msg,
	}
}

func invalidCredentialError(serverMessage string) *AttemptError {
	msg := serverMessage
	if msg == "" {
		msg = "We could not verify your access. Please check your details and try again."
	}
	return &AttemptError{
		Kind:    models.ErrInvalidCredential,
		Message: msg,
	}
}

func networkError(cause error) *AttemptError {
	return &AttemptError{
		Kind:    models.ErrNetwork,
		Message: "Unable to verify access right now. Please try again.",
		Cause:   cause,
	}
}
