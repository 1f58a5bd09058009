package auth

import (
	"context"
	"log/slog"
	"net/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// VisitorContextKey is the key for storing the visitor id in context
	VisitorContextKey contextKey = "visitor"
	// NewVisitorContextKey marks requests that arrived without a valid cookie
	NewVisitorContextKey contextKey = "new_visitor"
)

// VisitorMiddleware resolves the visitor id from the signed cookie. Requests
// without a valid cookie get a fresh visitor id and a new cookie. A valid
// cookie is re-signed on state-changing requests and once half its lifetime
// has passed, so an active visitor keeps the same id.
func VisitorMiddleware(tm *VisitorTokenManager, cookies CookieConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var visitorID string

			if raw, err := GetVisitorCookie(r); err == nil {
				if claims, err := tm.Validate(raw); err == nil {
					visitorID = claims.VisitorID
					if isStateChangingMethod(r.Method) || tm.NeedsRefresh(claims) {
						refreshVisitorCookie(w, tm, cookies, visitorID, logger)
					}
				} else {
					logger.Debug("discarding invalid visitor cookie", slog.Any("error", err))
				}
			}

			isNew := visitorID == ""
			if isNew {
				token, id, err := tm.Issue()
				if err != nil {
					logger.Error("failed to issue visitor token", slog.Any("error", err))
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				SetVisitorCookie(w, token, tm.MaxAge(), cookies)
				visitorID = id
			}

			ctx := context.WithValue(r.Context(), VisitorContextKey, visitorID)
			ctx = context.WithValue(ctx, NewVisitorContextKey, isNew)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// refreshVisitorCookie keeps the current cookie when signing fails
func refreshVisitorCookie(w http.ResponseWriter, tm *VisitorTokenManager, cookies CookieConfig, visitorID string, logger *slog.Logger) {
	token, err := tm.Refresh(visitorID)
	if err != nil {
		logger.Warn("failed to refresh visitor token", slog.Any("error", err))
		return
	}
	SetVisitorCookie(w, token, tm.MaxAge(), cookies)
}

func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// GetVisitorID extracts the visitor id from request context
func GetVisitorID(r *http.Request) string {
	id, _ := r.Context().Value(VisitorContextKey).(string)
	return id
}

// IsNewVisitor reports whether the visitor id was minted for this request
func IsNewVisitor(r *http.Request) bool {
	isNew, _ := r.Context().Value(NewVisitorContextKey).(bool)
	return isNew
}
