package auth

import (
	"net/http"
)

// VisitorCookieName carries the signed visitor token
const VisitorCookieName = "giftgate_visitor"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
}

// SetVisitorCookie sets the visitor token in an httpOnly cookie
func SetVisitorCookie(w http.ResponseWriter, token string, maxAge int, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	})
}

// GetVisitorCookie retrieves the visitor token from cookies
func GetVisitorCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(VisitorCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
