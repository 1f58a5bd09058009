package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/BradenHooton/giftgate/internal/access"
	"github.com/BradenHooton/giftgate/internal/models"
	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AccessHandler runs access validation and magic-link logins
type AccessHandler struct {
	visitors VisitorProvider
	sites    SiteDirectory
	logger   *slog.Logger
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(visitors VisitorProvider, sites SiteDirectory, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{visitors: visitors, sites: sites, logger: logger}
}

// Request DTOs

// VerifyAccessRequest is the body of POST /sites/{siteID}/access.
// Format rules are applied by the pipeline so every attempt is counted and logged.
type VerifyAccessRequest struct {
	Value string `json:"value" validate:"max=512"`
}

// MagicLinkRequest is the body of POST /access/magic-link
type MagicLinkRequest struct {
	Token string `json:"token" validate:"required,max=2048"`
}

// AccessResponse is returned after a successful login
type AccessResponse struct {
	*access.Result
	Session models.Session `json:"session"`
}

// VerifyAccess handles POST /sites/{siteID}/access
func (h *AccessHandler) VerifyAccess(w http.ResponseWriter, r *http.Request) {
	site, ok := h.sites.Site(chi.URLParam(r, "siteID"))
	if !ok {
		pkghttp.WriteNotFound(w, "Site not found")
		return
	}

	var req VerifyAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	visitor := currentVisitor(h.visitors, r)
	result, err := visitor.Access.Validate(r.Context(), access.Attempt{
		Site:      site,
		Value:     req.Value,
		ClientKey: visitor.ID,
	})
	if err != nil {
		h.writeAttemptError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AccessResponse{Result: result, Session: visitor.Session.Snapshot()})
}

// VerifyMagicLink handles POST /access/magic-link
func (h *AccessHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	visitor := currentVisitor(h.visitors, r)
	result, err := visitor.Access.VerifyMagicLink(r.Context(), req.Token, visitor.ID)
	if err != nil {
		h.writeAttemptError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AccessResponse{Result: result, Session: visitor.Session.Snapshot()})
}

// writeAttemptError maps a pipeline failure to its HTTP response
func (h *AccessHandler) writeAttemptError(w http.ResponseWriter, err error) {
	var attemptErr *access.AttemptError
	if !errors.As(err, &attemptErr) {
		h.logger.Error("unexpected access pipeline error", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	switch {
	case errors.Is(err, models.ErrRateLimited):
		retryAfter := int(math.Ceil(attemptErr.RetryAfter.Seconds()))
		pkghttp.WriteTooManyRequests(w, attemptErr.Message, retryAfter)
	case errors.Is(err, models.ErrInvalidFormat):
		pkghttp.WriteInvalidFormat(w, attemptErr.Message)
	case errors.Is(err, models.ErrInvalidCredential):
		pkghttp.WriteInvalidCredential(w, attemptErr.Message)
	case errors.Is(err, models.ErrNetwork):
		pkghttp.WriteNetworkError(w, attemptErr.Message)
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
