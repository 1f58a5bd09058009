package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Access validation outcomes
	ErrRateLimited       = errors.New("too many access attempts")
	ErrInvalidFormat     = errors.New("credential has an invalid format")
	ErrInvalidCredential = errors.New("credential was not accepted")
	ErrNetwork           = errors.New("verification service unreachable")

	// Session state errors
	ErrSessionExpired = errors.New("session expired due to inactivity")

	// Checkout errors
	ErrCheckoutBlocked = errors.New("checkout requirements not met")
)
