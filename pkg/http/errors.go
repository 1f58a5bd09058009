package http

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`             // Machine-readable error code
	Message string `json:"message"`           // Human-readable message
	Details any    `json:"details,omitempty"` // Optional additional context
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, nil)
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message string, details any) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

// WriteTooManyRequests sets Retry-After when retryAfterSeconds is positive
func WriteTooManyRequests(w http.ResponseWriter, message string, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInvalidFormat(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "invalid_format", message)
}

func WriteInvalidCredential(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "invalid_credential", message)
}

func WriteNetworkError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, "network_error", message)
}

func WriteSessionExpired(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "session_expired", message)
}

// WriteCheckoutBlocked reports the unmet checkout requirements in details
func WriteCheckoutBlocked(w http.ResponseWriter, message string, blockers []string) {
	WriteErrorWithDetails(w, http.StatusConflict, "checkout_blocked", message, blockers)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
