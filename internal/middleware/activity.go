package middleware

import (
	"net/http"

	"github.com/BradenHooton/giftgate/internal/auth"
	"github.com/BradenHooton/giftgate/internal/storefront"
)

// VisitorLookup finds an existing visitor without creating one
type VisitorLookup interface {
	Lookup(id string) (*storefront.Visitor, bool)
}

// Activity restarts the visitor's inactivity timer on state-changing requests.
// Read-only requests (GET, HEAD, OPTIONS) never extend the session, so polling
// cannot keep an idle tab signed in. Must run after auth.VisitorMiddleware.
func Activity(visitors VisitorLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStateChangingMethod(r.Method) {
				if v, ok := visitors.Lookup(auth.GetVisitorID(r)); ok {
					v.Session.NotifyActivity()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
