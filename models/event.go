package models

import (
	"time"

	"gomeals.io/market/models/enum"
)

// OrderEventType names an order lifecycle event published by the backend.
type OrderEventType string

const (
	OrderEventAccepted   OrderEventType = "order.accepted"
	OrderEventPreparing  OrderEventType = "order.preparing"
	OrderEventReady      OrderEventType = "order.ready_for_pickup"
	OrderEventDelivering OrderEventType = "order.out_for_delivery"
	OrderEventDelivered  OrderEventType = "order.delivered"
	OrderEventCompleted  OrderEventType = "order.completed"
	OrderEventCancelled  OrderEventType = "order.cancelled"
	OrderEventRejected   OrderEventType = "order.rejected"
)

// OrderEvent is one message on the order status stream.
type OrderEvent struct {
	ID        string           `json:"id"`
	Type      OrderEventType   `json:"type"`
	OrderID   string           `json:"order_id"`
	Status    enum.OrderStatus `json:"status"`
	Processed bool             `json:"processed"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Status reported by each event type. Unknown types map to the zero value.
var eventStatus = map[OrderEventType]enum.OrderStatus{
	OrderEventAccepted:   enum.OrderStatusAccepted,
	OrderEventPreparing:  enum.OrderStatusPreparing,
	OrderEventReady:      enum.OrderStatusReadyForPickup,
	OrderEventDelivering: enum.OrderStatusOutForDelivery,
	OrderEventDelivered:  enum.OrderStatusDelivered,
	OrderEventCompleted:  enum.OrderStatusCompleted,
	OrderEventCancelled:  enum.OrderStatusCancelled,
	OrderEventRejected:   enum.OrderStatusRejected,
}

// StatusFor resolves the order status an event type implies.
func StatusFor(t OrderEventType) (enum.OrderStatus, bool) {
	s, ok := eventStatus[t]
	return s, ok
}
