package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/giftgate/internal/access"
	"github.com/BradenHooton/giftgate/internal/auth"
	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/BradenHooton/giftgate/internal/security"
	"github.com/BradenHooton/giftgate/internal/storefront"
	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type siteMap map[string]models.Site

func (s siteMap) Site(id string) (models.Site, bool) {
	site, ok := s[id]
	return site, ok
}

var testSites = siteMap{
	"acme":   {ID: "acme", Name: "Acme Corp", ValidationMethod: models.MethodEmail, WelcomePageEnabled: true},
	"globex": {ID: "globex", Name: "Globex", ValidationMethod: models.MethodEmployeeID},
}

// testRig wires the handlers onto a router with a fixed visitor id per request
type testRig struct {
	clock    *clock.Fake
	sink     *security.MemorySink
	verifier *access.MockVerifier
	visitors *storefront.Registry
	router   chi.Router
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	fc := clock.NewFake(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := security.NewMemorySink()
	events := security.NewEventLogger(fc, logger, sink)
	verifier := &access.MockVerifier{}

	visitors := storefront.NewRegistry(storefront.Config{
		SessionTimeout: 30 * time.Minute,
		Access:         access.Config{MaxAttempts: 5, Window: 15 * time.Minute},
		Verifier:       verifier,
		Limiter:        security.NewRateLimiter(security.NewMemoryWindowStore(fc), fc, logger),
		Sites:          testSites,
		Events:         events,
		Clock:          fc,
		Logger:         logger,
	})

	accessHandler := NewAccessHandler(visitors, testSites, logger)
	sessionHandler := NewSessionHandler(visitors)
	cartHandler := NewCartHandler(visitors)
	checkoutHandler := NewCheckoutHandler(visitors, events)

	r := chi.NewRouter()
	r.Get("/sites/{siteID}", NewSiteHandler(testSites).GetSite)
	r.Post("/sites/{siteID}/access", accessHandler.VerifyAccess)
	r.Post("/access/magic-link", accessHandler.VerifyMagicLink)
	r.Get("/session", sessionHandler.GetSession)
	r.Post("/session/activity", sessionHandler.Activity)
	r.Post("/session/logout", sessionHandler.Logout)
	r.Get("/cart", cartHandler.GetCart)
	r.Post("/cart/items", cartHandler.AddItem)
	r.Put("/cart/items/{id}", cartHandler.UpdateQuantity)
	r.Delete("/cart/items/{id}", cartHandler.RemoveItem)
	r.Put("/cart/shipping", cartHandler.SetShipping)
	r.Delete("/cart", cartHandler.ClearCart)
	r.Get("/checkout", checkoutHandler.Status)
	r.Post("/checkout/complete", checkoutHandler.Complete)

	return &testRig{clock: fc, sink: sink, verifier: verifier, visitors: visitors, router: r}
}

// do sends a request as visitorID and returns the recorded response
func (rig *testRig) do(t *testing.T, visitorID, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := NewTestRequest(t, method, url, body)
	req = req.WithContext(context.WithValue(req.Context(), auth.VisitorContextKey, visitorID))
	w := httptest.NewRecorder()
	rig.router.ServeHTTP(w, req)
	return w
}

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch: %s", w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch: %s", w.Body.String())

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

func acceptEveryone(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
	return &models.VerifyAccessResponse{
		Valid:        true,
		SessionToken: "sess-" + req.Value,
		Employee:     &models.Employee{ID: "emp-1", Name: "Alice Doe", Email: req.Value},
	}, nil
}

// signIn authenticates visitorID on the acme site
func (rig *testRig) signIn(t *testing.T, visitorID string) {
	t.Helper()
	rig.verifier.VerifyAccessFunc = acceptEveryone
	w := rig.do(t, visitorID, http.MethodPost, "/sites/acme/access", map[string]string{"value": "alice@acme.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("sign in failed: %d %s", w.Code, w.Body.String())
	}
}
