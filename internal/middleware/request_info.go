package middleware

import (
	"net/http"

	"github.com/BradenHooton/giftgate/internal/security"
)

// RequestInfo attaches the user agent and request path to the context so
// security events can be enriched without the caller passing them around.
func RequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := security.WithRequestInfo(r.Context(), security.RequestInfo{
			UserAgent: r.UserAgent(),
			URL:       r.URL.Path,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
