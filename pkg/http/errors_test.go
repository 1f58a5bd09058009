package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decodeError(t, w)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Nil(t, resp.Details)
	assert.NotContains(t, w.Body.String(), "details")
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteJSON(w, 201, map[string]int{"count": 2})

	assert.Equal(t, 201, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
		code   string
	}{
		{"bad request", func(w *httptest.ResponseRecorder) { pkghttp.WriteBadRequest(w, "m") }, 400, "bad_request"},
		{"unauthorized", func(w *httptest.ResponseRecorder) { pkghttp.WriteUnauthorized(w, "m") }, 401, "unauthorized"},
		{"not found", func(w *httptest.ResponseRecorder) { pkghttp.WriteNotFound(w, "m") }, 404, "not_found"},
		{"invalid format", func(w *httptest.ResponseRecorder) { pkghttp.WriteInvalidFormat(w, "m") }, 400, "invalid_format"},
		{"invalid credential", func(w *httptest.ResponseRecorder) { pkghttp.WriteInvalidCredential(w, "m") }, 401, "invalid_credential"},
		{"network", func(w *httptest.ResponseRecorder) { pkghttp.WriteNetworkError(w, "m") }, 502, "network_error"},
		{"session expired", func(w *httptest.ResponseRecorder) { pkghttp.WriteSessionExpired(w, "m") }, 401, "session_expired"},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w, "m") }, 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, "m", resp.Message)
		})
	}
}

func TestWriteTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteTooManyRequests(w, "Too many attempts", 900)

	assert.Equal(t, 429, w.Code)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeError(t, w).Error)

	w = httptest.NewRecorder()
	pkghttp.WriteTooManyRequests(w, "Too many attempts", 0)
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestWriteCheckoutBlocked(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteCheckoutBlocked(w, "Checkout is not available yet", []string{"cart_empty"})

	assert.Equal(t, 409, w.Code)
	assert.JSONEq(t, `{"error":"checkout_blocked","message":"Checkout is not available yet","details":["cart_empty"]}`, w.Body.String())
}
