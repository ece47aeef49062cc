package models

import (
	"time"

	"github.com/shopspring/decimal"

	"gomeals.io/market/models/enum"
)

// Order is a placed order as reported by the backend.
type Order struct {
	ID                   string           `json:"id"`
	ConsumerID           string           `json:"consumer_id"`
	VendorID             string           `json:"vendor_id"`
	VendorName           string           `json:"vendor_name,omitempty"`
	Items                []OrderItem      `json:"items"`
	Status               enum.OrderStatus `json:"status"`
	TotalAmount          decimal.Decimal  `json:"total_amount"`
	DeliveryFee          decimal.Decimal  `json:"delivery_fee"`
	DeliveryOption       string           `json:"delivery_option"`
	SpecialInstructions  string           `json:"special_instructions,omitempty"`
	RequestedDeliveryAt  time.Time        `json:"requested_delivery_at,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// OrderItem is a single meal line on an order.
type OrderItem struct {
	MealID    string          `json:"meal_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  uint64          `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// orderTransitions enumerates the legal forward moves of the fulfillment
// pipeline. Anything not listed is an invalid transition.
var orderTransitions = map[enum.OrderStatus][]enum.OrderStatus{
	enum.OrderStatusPending:        {enum.OrderStatusAccepted, enum.OrderStatusRejected, enum.OrderStatusCancelled},
	enum.OrderStatusAccepted:       {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing:      {enum.OrderStatusReadyForPickup, enum.OrderStatusOutForDelivery},
	enum.OrderStatusReadyForPickup: {enum.OrderStatusCompleted},
	enum.OrderStatusOutForDelivery: {enum.OrderStatusDelivered},
	enum.OrderStatusDelivered:      {enum.OrderStatusCompleted},
}

// AllowChangeStatus reports whether the order may move to newStatus from its
// current status.
func (o *Order) AllowChangeStatus(newStatus enum.OrderStatus) bool {
	for _, next := range orderTransitions[o.Status] {
		if next == newStatus {
			return true
		}
	}
	return false
}

// CanCancel reports whether the consumer may still cancel the order.
func (o *Order) CanCancel() bool {
	return o.Status == enum.OrderStatusPending || o.Status == enum.OrderStatusAccepted
}
