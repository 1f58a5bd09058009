package handlers

import (
	"net/http"

	"github.com/BradenHooton/giftgate/internal/cart"
	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/BradenHooton/giftgate/internal/security"
	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CartHandler exposes the visitor's cart
type CartHandler struct {
	visitors VisitorProvider
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(visitors VisitorProvider) *CartHandler {
	return &CartHandler{visitors: visitors}
}

// Request DTOs

// AddItemRequest is the body of POST /cart/items
type AddItemRequest struct {
	ID    string          `json:"id" validate:"required,max=64"`
	Name  string          `json:"name" validate:"required,max=200"`
	Price decimal.Decimal `json:"price"`
}

// UpdateQuantityRequest is the body of PUT /cart/items/{id}. Zero or a
// negative quantity removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// SetShippingRequest is the body of PUT /cart/shipping
type SetShippingRequest struct {
	Mode models.ShippingMode `json:"mode" validate:"required,oneof=company employee"`
}

// CartResponse is the cart snapshot plus the checkout gate
type CartResponse struct {
	cart.Snapshot
	CanCheckout bool `json:"can_checkout"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, http.StatusOK)
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if req.Price.IsNegative() {
		pkghttp.WriteBadRequest(w, "validation failed: Price: must not be negative")
		return
	}

	currentVisitor(h.visitors, r).Cart.AddToCart(models.Product{
		ID:    security.SanitizeString(req.ID),
		Name:  security.SanitizeString(req.Name),
		Price: req.Price,
	})
	h.writeCart(w, r, http.StatusOK)
}

// UpdateQuantity handles PUT /cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	viewVisitor(h.visitors, r).Cart.UpdateQuantity(chi.URLParam(r, "id"), *req.Quantity)
	h.writeCart(w, r, http.StatusOK)
}

// RemoveItem handles DELETE /cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	viewVisitor(h.visitors, r).Cart.RemoveFromCart(chi.URLParam(r, "id"))
	h.writeCart(w, r, http.StatusOK)
}

// SetShipping handles PUT /cart/shipping
func (h *CartHandler) SetShipping(w http.ResponseWriter, r *http.Request) {
	var req SetShippingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	currentVisitor(h.visitors, r).Cart.SetShippingType(req.Mode)
	h.writeCart(w, r, http.StatusOK)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	viewVisitor(h.visitors, r).Cart.ClearCart()
	h.writeCart(w, r, http.StatusOK)
}

func (h *CartHandler) writeCart(w http.ResponseWriter, r *http.Request, status int) {
	visitor := viewVisitor(h.visitors, r)
	pkghttp.WriteJSON(w, status, CartResponse{
		Snapshot:    visitor.Cart.Snapshot(),
		CanCheckout: visitor.CanCheckout(),
	})
}
