// Package order handles checkout and local order tracking. Orders of record
// live in the backend; this service converts the session cart into an order,
// lists and cancels orders over the API, and keeps a locally tracked view
// that order status events update in place.
package order

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gomeals.io/market/api"
	"gomeals.io/market/models"
	"gomeals.io/market/models/enum"
)

var (
	ErrEmptyCart        = errors.New("order: cart is empty")
	ErrCannotCancel     = errors.New("order: order can no longer be cancelled")
	ErrUnknownEventType = errors.New("order: unknown event type")
)

// CheckoutParams carries the delivery details collected at checkout.
type CheckoutParams struct {
	DeliveryOption      string          `json:"delivery_option"`
	DeliveryAddress     string          `json:"delivery_address,omitempty"`
	DeliveryFee         decimal.Decimal `json:"delivery_fee"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}

// checkoutRequest is the payload posted to the backend's order endpoint.
type checkoutRequest struct {
	Reference string             `json:"reference"`
	VendorID  string             `json:"vendor_id"`
	Items     []models.OrderItem `json:"items"`
	CheckoutParams
}

type Service interface {
	Checkout(ctx context.Context, cart *models.Cart, params CheckoutParams) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	ApplyEvent(event *models.OrderEvent) error
	TrackedOrder(orderID string) (*models.Order, bool)
}

var _ Service = (*service)(nil)

type service struct {
	client *api.Client
	logger *zap.Logger

	mu      sync.RWMutex
	tracked map[string]*models.Order
}

func NewService(client *api.Client, logger *zap.Logger) Service {
	return &service{
		client:  client,
		logger:  logger,
		tracked: make(map[string]*models.Order),
	}
}

// Checkout converts the cart into an order. The cart is validated here but
// not cleared; the caller clears it once the order is confirmed.
func (s *service) Checkout(ctx context.Context, cart *models.Cart, params CheckoutParams) (*models.Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items := make([]models.OrderItem, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = models.OrderItem{
			MealID:    item.Meal.ID,
			Name:      item.Meal.Name,
			UnitPrice: item.Meal.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		}
	}

	req := checkoutRequest{
		Reference:      uuid.NewString(),
		VendorID:       cart.VendorID,
		Items:          items,
		CheckoutParams: params,
	}

	created := new(models.Order)
	if err := s.client.Post(ctx, "/order", req, created); err != nil {
		return nil, fmt.Errorf("checkout failed: %w", err)
	}

	s.track(created)

	s.logger.Info("Order placed",
		zap.String("order_id", created.ID),
		zap.String("vendor_id", created.VendorID),
		zap.String("total", created.TotalAmount.String()))

	return created, nil
}

func (s *service) ListOrders(ctx context.Context) ([]*models.Order, error) {
	var orders []*models.Order
	if err := s.client.Get(ctx, "/order", &orders); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	for _, o := range orders {
		s.track(o)
	}

	return orders, nil
}

func (s *service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	fetched := new(models.Order)
	if err := s.client.Get(ctx, "/order/"+orderID, fetched); err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}

	s.track(fetched)

	return fetched, nil
}

// CancelOrder checks the transition locally before asking the backend, so a
// hopeless cancel never leaves the client.
func (s *service) CancelOrder(ctx context.Context, orderID string) error {
	if tracked, ok := s.TrackedOrder(orderID); ok && !tracked.CanCancel() {
		return ErrCannotCancel
	}

	if err := s.client.Post(ctx, "/order/"+orderID+"/cancel", nil, nil); err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}

	s.mu.Lock()
	if o, ok := s.tracked[orderID]; ok {
		o.Status = enum.OrderStatusCancelled
	}
	s.mu.Unlock()

	return nil
}

// ApplyEvent moves a tracked order along the status pipeline. Events for
// orders not tracked locally are ignored; invalid transitions are logged and
// dropped rather than applied.
func (s *service) ApplyEvent(event *models.OrderEvent) error {
	status, ok := models.StatusFor(event.Type)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, event.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tracked, ok := s.tracked[event.OrderID]
	if !ok {
		return nil
	}

	if !tracked.AllowChangeStatus(status) {
		s.logger.Warn("Dropping invalid order status transition",
			zap.String("order_id", event.OrderID),
			zap.String("from", string(tracked.Status)),
			zap.String("to", string(status)))
		return nil
	}

	tracked.Status = status

	s.logger.Info("Order status updated",
		zap.String("order_id", event.OrderID),
		zap.String("status", string(status)))

	return nil
}

// TrackedOrder returns a copy of the locally tracked order, if any.
func (s *service) TrackedOrder(orderID string) (*models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracked, ok := s.tracked[orderID]
	if !ok {
		return nil, false
	}
	clone := *tracked
	return &clone, true
}

func (s *service) track(o *models.Order) {
	if o == nil || o.ID == "" {
		return
	}
	s.mu.Lock()
	s.tracked[o.ID] = o
	s.mu.Unlock()
}
