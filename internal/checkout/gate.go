// Package checkout decides whether the visitor may proceed to checkout.
package checkout

import "github.com/BradenHooton/giftgate/internal/models"

// Reasons reported when checkout is blocked
const (
	BlockerNotAuthenticated    = "not_authenticated"
	BlockerCartEmpty           = "cart_empty"
	BlockerShippingModeMissing = "shipping_mode_missing"
)

// SessionState is the part of the session the gate reads
type SessionState interface {
	Authenticated() bool
}

// CartState is the part of the cart the gate reads
type CartState interface {
	Len() int
	ShippingMode() models.ShippingMode
}

// CanCheckout is true only when the session is authenticated, the cart has at
// least one line and a shipping mode is selected. It holds no state and is
// meant to be re-evaluated on every read.
func CanCheckout(s SessionState, c CartState) bool {
	return len(Blockers(s, c)) == 0
}

// Blockers lists every unmet checkout requirement, in a stable order
func Blockers(s SessionState, c CartState) []string {
	var blockers []string
	if !s.Authenticated() {
		blockers = append(blockers, BlockerNotAuthenticated)
	}
	if c.Len() == 0 {
		blockers = append(blockers, BlockerCartEmpty)
	}
	if c.ShippingMode() == models.ShippingModeNone {
		blockers = append(blockers, BlockerShippingModeMissing)
	}
	return blockers
}
