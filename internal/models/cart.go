package models

import "github.com/shopspring/decimal"

// ShippingMode selects where an order is delivered
type ShippingMode string

const (
	ShippingModeNone     ShippingMode = ""
	ShippingModeCompany  ShippingMode = "company"
	ShippingModeEmployee ShippingMode = "employee"
)

// Valid reports whether m is one of the selectable shipping modes
func (m ShippingMode) Valid() bool {
	return m == ShippingModeCompany || m == ShippingModeEmployee
}

// Product is the catalog item handed to the cart
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// CartLine is one occupied line of the cart. Quantity is always >= 1.
type CartLine struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Subtotal returns price multiplied by quantity
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
