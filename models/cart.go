package models

import (
	"github.com/shopspring/decimal"
)

// CartItem is a single line in the cart: one meal at a quantity of at least one.
type CartItem struct {
	Meal     Meal   `json:"meal"`
	Quantity uint64 `json:"quantity"`
}

func (ci CartItem) Subtotal() decimal.Decimal {
	return ci.Meal.Price.Mul(decimal.NewFromUint64(ci.Quantity))
}

// Cart holds the session's line items. All items in a non-empty cart belong to
// the same vendor, and TotalAmount is always derived from the items.
type Cart struct {
	Items       []CartItem      `json:"items"`
	VendorID    string          `json:"vendor_id,omitempty"`
	VendorName  string          `json:"vendor_name,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func NewCart() *Cart {
	return &Cart{TotalAmount: decimal.Zero}
}

// RecalculateTotal re-derives TotalAmount from scratch. Callers mutate items
// and then recompute; the total is never adjusted incrementally.
func (c *Cart) RecalculateTotal() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	c.TotalAmount = total
}

// ItemCount sums quantities over all lines.
func (c *Cart) ItemCount() uint64 {
	var count uint64
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy so callers can read cart state without holding a
// reference into the engine's live cart.
func (c *Cart) Clone() *Cart {
	clone := &Cart{
		VendorID:    c.VendorID,
		VendorName:  c.VendorName,
		TotalAmount: c.TotalAmount,
	}
	if len(c.Items) > 0 {
		clone.Items = make([]CartItem, len(c.Items))
		copy(clone.Items, c.Items)
	}
	return clone
}
