package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/giftgate/internal/models"
	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
)

// SessionHandler exposes the visitor's session state
type SessionHandler struct {
	visitors VisitorProvider
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(visitors VisitorProvider) *SessionHandler {
	return &SessionHandler{visitors: visitors}
}

// SessionResponse wraps the snapshot with the reason for the last logout
type SessionResponse struct {
	models.Session
	Expired bool `json:"expired"`
}

// GetSession handles GET /session. Reading never extends the session.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	visitor := viewVisitor(h.visitors, r)
	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		Session: visitor.Session.Snapshot(),
		Expired: errors.Is(visitor.Session.Err(), models.ErrSessionExpired),
	})
}

// Activity handles POST /session/activity. The timer restart itself happens
// in the activity middleware; this reports whether there was a session to extend.
func (h *SessionHandler) Activity(w http.ResponseWriter, r *http.Request) {
	visitor := viewVisitor(h.visitors, r)

	if !visitor.Session.Authenticated() {
		if errors.Is(visitor.Session.Err(), models.ErrSessionExpired) {
			pkghttp.WriteSessionExpired(w, "Your session expired due to inactivity. Please sign in again.")
			return
		}
		pkghttp.WriteUnauthorized(w, "Not signed in")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{Session: visitor.Session.Snapshot()})
}

// Logout handles POST /session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	viewVisitor(h.visitors, r).Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
