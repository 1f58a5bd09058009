package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/BradenHooton/giftgate/internal/security"
	"github.com/BradenHooton/giftgate/internal/storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivity_OnlyStateChangingRequestsExtendSession(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := storefront.NewRegistry(storefront.Config{
		SessionTimeout: 30 * time.Minute,
		Events:         security.NewEventLogger(fc, logger),
		Clock:          fc,
		Logger:         logger,
	})

	v := reg.Get("v1")
	v.Session.Authenticate(context.Background(), "a@b.co", nil)

	handler := Activity(reg)(okHandler())
	serve := func(method string) {
		req := withVisitor(httptest.NewRequest(method, "/cart", nil), "v1")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	fc.Advance(20 * time.Minute)
	serve(http.MethodGet)
	fc.Advance(11 * time.Minute)
	require.False(t, v.Session.Authenticated(), "GET must not extend the session")

	v.Session.Authenticate(context.Background(), "a@b.co", nil)
	fc.Advance(20 * time.Minute)
	serve(http.MethodPut)
	fc.Advance(20 * time.Minute)
	assert.True(t, v.Session.Authenticated(), "PUT restarts the inactivity timer")
}

func TestActivity_UnknownVisitorIsIgnored(t *testing.T) {
	reg := storefront.NewRegistry(storefront.Config{})
	handler := Activity(reg)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, withVisitor(httptest.NewRequest("POST", "/session/activity", nil), "ghost"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, reg.Len(), "activity never creates visitors")
}

func TestRequestInfo(t *testing.T) {
	var info security.RequestInfo
	handler := RequestInfo(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info = security.RequestInfoFrom(r.Context())
	}))

	req := httptest.NewRequest("POST", "/sites/acme/access?x=1", nil)
	req.Header.Set("User-Agent", "test-agent/1.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, security.RequestInfo{UserAgent: "test-agent/1.0", URL: "/sites/acme/access"}, info)
}
