// Package cart holds the visitor's shopping cart and its shipping-mode choice.
// Operations never fail; unknown ids and non-positive quantities degrade to
// removals or no-ops.
package cart

import (
	"sync"

	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/shopspring/decimal"
)

// Cart is an ordered list of lines plus the selected shipping mode
type Cart struct {
	mu           sync.RWMutex
	lines        []models.CartLine
	shippingMode models.ShippingMode
}

// New returns an empty cart with no shipping mode
func New() *Cart {
	return &Cart{}
}

// AddToCart increments the line for product.ID, or appends a new line with quantity 1
func (c *Cart) AddToCart(product models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(product.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, models.CartLine{
		ID:       product.ID,
		Name:     product.Name,
		Price:    product.Price,
		Quantity: 1,
	})
}

// RemoveFromCart deletes the line for id; absent ids are ignored
func (c *Cart) RemoveFromCart(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

// UpdateQuantity sets the quantity for id. A quantity of zero or less removes the line.
func (c *Cart) UpdateQuantity(id string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		c.removeLocked(id)
		return
	}
	if i := c.indexLocked(id); i >= 0 {
		c.lines[i].Quantity = quantity
	}
}

// SetShippingType records the shipping mode. Values outside the enum are ignored
// and reported as false.
func (c *Cart) SetShippingType(mode models.ShippingMode) bool {
	if !mode.Valid() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.shippingMode = mode
	return true
}

// ClearCart empties the cart and resets the shipping mode
func (c *Cart) ClearCart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.shippingMode = models.ShippingModeNone
}

// Lines returns a copy of the cart lines in insertion order
func (c *Cart) Lines() []models.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of occupied lines
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

func (c *Cart) ShippingMode() models.ShippingMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shippingMode
}

// TotalItems is the sum of quantities, recomputed on every call
func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice is the sum of price*quantity, recomputed on every call
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Snapshot is a point-in-time view of the cart with derived totals
type Snapshot struct {
	Lines        []models.CartLine   `json:"lines"`
	ShippingMode models.ShippingMode `json:"shipping_mode"`
	TotalItems   int                 `json:"total_items"`
	TotalPrice   decimal.Decimal     `json:"total_price"`
}

// Snapshot returns lines, shipping mode and totals read under one lock
func (c *Cart) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Lines:        make([]models.CartLine, len(c.lines)),
		ShippingMode: c.shippingMode,
		TotalPrice:   decimal.Zero,
	}
	copy(s.Lines, c.lines)
	for _, l := range c.lines {
		s.TotalItems += l.Quantity
		s.TotalPrice = s.TotalPrice.Add(l.Subtotal())
	}
	return s
}

func (c *Cart) indexLocked(id string) int {
	for i, l := range c.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) removeLocked(id string) {
	if i := c.indexLocked(id); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}
