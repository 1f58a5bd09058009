package handlers

import (
	"errors"
	"net/http"
	"slices"

	"github.com/BradenHooton/giftgate/internal/cart"
	"github.com/BradenHooton/giftgate/internal/checkout"
	"github.com/BradenHooton/giftgate/internal/models"
	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
)

// CheckoutHandler evaluates the checkout gate and completes orders
type CheckoutHandler struct {
	visitors VisitorProvider
	events   EventLogger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(visitors VisitorProvider, events EventLogger) *CheckoutHandler {
	return &CheckoutHandler{visitors: visitors, events: events}
}

// CheckoutStatusResponse is the body of GET /checkout
type CheckoutStatusResponse struct {
	CanCheckout bool     `json:"can_checkout"`
	Blockers    []string `json:"blockers"`
}

// OrderResponse echoes the submitted cart
type OrderResponse struct {
	Order cart.Snapshot `json:"order"`
}

// Status handles GET /checkout. The gate is re-evaluated on every call.
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	blockers := viewVisitor(h.visitors, r).CheckoutBlockers()
	if blockers == nil {
		blockers = []string{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, CheckoutStatusResponse{
		CanCheckout: len(blockers) == 0,
		Blockers:    blockers,
	})
}

// Complete handles POST /checkout/complete. It re-checks the gate, records
// the order and empties the cart.
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	visitor := viewVisitor(h.visitors, r)

	if blockers := visitor.CheckoutBlockers(); len(blockers) > 0 {
		if slices.Contains(blockers, checkout.BlockerNotAuthenticated) &&
			errors.Is(visitor.Session.Err(), models.ErrSessionExpired) {
			pkghttp.WriteSessionExpired(w, "Your session expired due to inactivity. Please sign in again.")
			return
		}
		pkghttp.WriteCheckoutBlocked(w, "Checkout requirements are not met", blockers)
		return
	}

	order := visitor.Cart.Snapshot()
	session := visitor.Session.Snapshot()
	siteID, _ := visitor.Storage.Get(models.StorageKeySiteID)

	if h.events != nil {
		h.events.Log(r.Context(), models.SecurityEvent{
			Action: models.ActionOrderSubmitted,
			Status: models.EventStatusSuccess,
			UserID: session.Identifier,
			Details: map[string]any{
				"site_id":       siteID,
				"total_items":   order.TotalItems,
				"total_price":   order.TotalPrice.StringFixed(2),
				"shipping_mode": string(order.ShippingMode),
			},
		})
	}

	visitor.Cart.ClearCart()
	pkghttp.WriteJSON(w, http.StatusOK, OrderResponse{Order: order})
}
