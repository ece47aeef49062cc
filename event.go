package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gomeals.io/market/models"
)

// orderEventSubject matches every order lifecycle event the backend publishes.
const orderEventSubject = "order.service.event.>"

type EventHandler func(context.Context, *models.OrderEvent) error

type EventManager struct {
	natsConn *nats.Conn
	handlers map[models.OrderEventType]EventHandler
	logger   *zap.Logger
}

func NewEventManager(natsConn *nats.Conn, logger *zap.Logger) *EventManager {
	return &EventManager{
		natsConn: natsConn,
		handlers: make(map[models.OrderEventType]EventHandler),
		logger:   logger,
	}
}

func (em *EventManager) RegisterHandler(eventType models.OrderEventType, handler EventHandler) {
	em.handlers[eventType] = handler
}

func (em *EventManager) GetHandler(eventType models.OrderEventType) (EventHandler, bool) {
	handler, exists := em.handlers[eventType]
	return handler, exists
}

func (em *EventManager) SubscribeToEvents(wp *WorkerPool) error {
	_, err := em.natsConn.Subscribe(orderEventSubject, func(msg *nats.Msg) {
		event := new(models.OrderEvent)
		if err := json.Unmarshal(msg.Data, event); err != nil {
			em.logger.Error("Failed to unmarshal order event", zap.Error(err))
			return
		}

		wp.Submit(context.Background(), event)
	})

	return err
}

func (s *service) registerEventHandlers() {
	eventHandlers := map[models.OrderEventType]EventHandler{
		// Fulfillment progress
		models.OrderEventAccepted:   s.handleOrderProgress,
		models.OrderEventPreparing:  s.handleOrderProgress,
		models.OrderEventReady:      s.handleOrderProgress,
		models.OrderEventDelivering: s.handleOrderProgress,
		models.OrderEventDelivered:  s.handleOrderProgress,

		// Terminal outcomes
		models.OrderEventCompleted: s.handleOrderCompleted,
		models.OrderEventCancelled: s.handleOrderClosed,
		models.OrderEventRejected:  s.handleOrderClosed,
	}

	for eventType, handler := range eventHandlers {
		s.eventManager.RegisterHandler(eventType, handler)
	}
}

func (s *service) handleOrderProgress(_ context.Context, event *models.OrderEvent) error {
	return s.order.ApplyEvent(event)
}

// handleOrderCompleted closes out the order and, when it corresponds to the
// session's active checkout, clears the cart.
func (s *service) handleOrderCompleted(ctx context.Context, event *models.OrderEvent) error {
	if err := s.order.ApplyEvent(event); err != nil {
		return err
	}

	if err := s.cart.Clear(ctx); err != nil {
		s.logger.Warn("Failed to clear cart after order completion", zap.Error(err))
	}

	return nil
}

func (s *service) handleOrderClosed(_ context.Context, event *models.OrderEvent) error {
	s.logger.Info("Order closed by vendor or consumer",
		zap.String("order_id", event.OrderID),
		zap.String("event_type", string(event.Type)))

	return s.order.ApplyEvent(event)
}

// ProcessEvent handles one event exactly once: redeliveries of an already
// recorded event id are dropped before any handler runs.
func (s *service) ProcessEvent(ctx context.Context, event *models.OrderEvent) error {
	if _, err := s.event.GetByID(ctx, event.ID); err == nil {
		s.logger.Info("Event already processed", zap.String("event_id", event.ID))
		return nil
	}

	handler, exists := s.eventManager.GetHandler(event.Type)
	if !exists {
		return fmt.Errorf("no handler registered for event type: %s", event.Type)
	}

	if err := s.event.Create(ctx, &models.OrderEvent{
		ID:        event.ID,
		Type:      event.Type,
		OrderID:   event.OrderID,
		Status:    event.Status,
		Processed: false,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}); err != nil {
		s.logger.Error("Failed to record event", zap.Error(err))
		return err
	}

	if err := handler(ctx, event); err != nil {
		s.logger.Error("Failed to handle order event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return err
	}

	if err := s.event.MarkAsProcessed(ctx, event.ID); err != nil {
		s.logger.Warn("Failed to mark event as processed", zap.String("event_id", event.ID), zap.Error(err))
	}

	s.logger.Info("Order event processed", zap.String("event_id", event.ID))

	return nil
}
