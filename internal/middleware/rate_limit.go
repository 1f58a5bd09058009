package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/giftgate/internal/auth"
	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// DefaultAccessRateLimit returns the per-IP ceiling for the access routes
func DefaultAccessRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(pkghttp.ClientIPKeyFunc(config.IPConfig)),
		httprate.WithLimitHandler(writeRateLimited),
	)
}

// VisitorRateLimitConfig holds per-visitor ceilings for cart and session traffic
type VisitorRateLimitConfig struct {
	ReadOperationsPerMinute  int
	WriteOperationsPerMinute int
	IPConfig                 *pkghttp.IPConfig
}

// DefaultVisitorRateLimit returns default per-visitor ceilings
func DefaultVisitorRateLimit() VisitorRateLimitConfig {
	return VisitorRateLimitConfig{
		ReadOperationsPerMinute:  120,
		WriteOperationsPerMinute: 60,
	}
}

// RateLimitByVisitor rate limits by visitor id. Requests that carried no valid
// visitor cookie are keyed by client IP, so dropping the cookie does not reset
// the window. operation is "read" or "write".
func RateLimitByVisitor(config VisitorRateLimitConfig, operation string) func(next http.Handler) http.Handler {
	limit := config.ReadOperationsPerMinute
	if operation == "write" {
		limit = config.WriteOperationsPerMinute
	}

	return httprate.Limit(
		limit,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id := auth.GetVisitorID(r); id != "" && !auth.IsNewVisitor(r) {
				return operation + ":visitor:" + id, nil
			}
			return operation + ":ip:" + pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(writeRateLimited),
	)
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Too many requests", 60)
}
