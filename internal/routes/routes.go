package routes

import (
	"log/slog"

	"github.com/BradenHooton/giftgate/internal/auth"
	"github.com/BradenHooton/giftgate/internal/handlers"
	"github.com/BradenHooton/giftgate/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the storefront HTTP handlers
type Handlers struct {
	Health   *handlers.HealthHandler
	Sites    *handlers.SiteHandler
	Access   *handlers.AccessHandler
	Session  *handlers.SessionHandler
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
}

// Options carries the visitor identity and throttling settings
type Options struct {
	TokenManager     *auth.VisitorTokenManager
	Cookies          auth.CookieConfig
	Visitors         middleware.VisitorLookup
	AccessRateLimit  middleware.RateLimitConfig
	VisitorRateLimit middleware.VisitorRateLimitConfig
	Logger           *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, opts Options) {
	// Public routes - no visitor cookie
	router.Get("/health", h.Health.Health)
	router.Get("/sites/{siteID}", h.Sites.GetSite)

	// Visitor routes - every request is bound to one visitor
	router.Group(func(r chi.Router) {
		r.Use(auth.VisitorMiddleware(opts.TokenManager, opts.Cookies, opts.Logger))
		r.Use(middleware.Activity(opts.Visitors))

		// Access attempts are also throttled per client IP ahead of the pipeline
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(opts.AccessRateLimit))
			r.Post("/sites/{siteID}/access", h.Access.VerifyAccess)
			r.Post("/access/magic-link", h.Access.VerifyMagicLink)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByVisitor(opts.VisitorRateLimit, "read"))
			r.Get("/session", h.Session.GetSession)
			r.Get("/cart", h.Cart.GetCart)
			r.Get("/checkout", h.Checkout.Status)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByVisitor(opts.VisitorRateLimit, "write"))
			r.Post("/session/activity", h.Session.Activity)
			r.Post("/session/logout", h.Session.Logout)

			r.Post("/cart/items", h.Cart.AddItem)
			r.Put("/cart/items/{id}", h.Cart.UpdateQuantity)
			r.Delete("/cart/items/{id}", h.Cart.RemoveItem)
			r.Put("/cart/shipping", h.Cart.SetShipping)
			r.Delete("/cart", h.Cart.ClearCart)

			r.Post("/checkout/complete", h.Checkout.Complete)
		})
	})
}
