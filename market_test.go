package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gomeals.io/market/api"
	"gomeals.io/market/auth"
	"gomeals.io/market/cart"
	"gomeals.io/market/event"
	"gomeals.io/market/meals"
	"gomeals.io/market/models"
	"gomeals.io/market/models/enum"
	"gomeals.io/market/order"
	"gomeals.io/market/store"
)

// marketHarness keeps direct handles on the composed services so tests can
// observe state the facade does not expose, such as locally tracked orders.
type marketHarness struct {
	svc      Service
	orderSvc order.Service
	kv       store.Store
}

// newMarketHarness wires the full facade over an httptest backend, an
// in-memory store, and no NATS connection (events are fed through
// ProcessEvent directly).
func newMarketHarness(t *testing.T, handler http.Handler) *marketHarness {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	kv := store.NewMemory()
	client := api.NewClient(srv.URL, kv, nil, 2*time.Second, logger)
	orderSvc := order.NewService(client, logger)

	svc := NewService(
		cart.NewEngine(context.Background(), kv, func(_, _ string) bool { return true }, logger),
		auth.NewService(client, kv, logger),
		meals.NewService(client, logger),
		orderSvc,
		event.NewRepository(kv, logger),
		nil,
		logger,
	)
	return &marketHarness{svc: svc, orderSvc: orderSvc, kv: kv}
}

func backendFixture() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/meal", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]*models.Meal{
			{ID: "m1", VendorID: "v1", Name: "Dal Tadka", Price: decimal.NewFromInt(9),
				CuisineTypes: []string{"indian"}, Rating: 4.5},
			{ID: "m2", VendorID: "v2", Name: "Pad Thai", Price: decimal.NewFromInt(12),
				CuisineTypes: []string{"thai"}, Rating: 4.0},
		})
	})
	mux.HandleFunc("/order", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			VendorID string             `json:"vendor_id"`
			Items    []models.OrderItem `json:"items"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(models.Order{
			ID:       "o1",
			VendorID: req.VendorID,
			Items:    req.Items,
			Status:   enum.OrderStatusPending,
		})
	})
	return mux
}

func placeOrder(t *testing.T, h *marketHarness) *models.Order {
	t.Helper()
	ctx := context.Background()

	meal := models.Meal{ID: "m1", VendorID: "v1", Name: "Dal Tadka", Price: decimal.NewFromInt(9)}
	require.NoError(t, h.svc.AddToCart(ctx, meal, 2))

	placed, err := h.svc.Checkout(ctx, order.CheckoutParams{DeliveryOption: "pickup"})
	require.NoError(t, err)
	return placed
}

func TestSearchMealsFiltersCatalog(t *testing.T) {
	h := newMarketHarness(t, backendFixture())

	got, err := h.svc.SearchMeals(context.Background(), meals.Filter{CuisineTypes: []string{"thai"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m2", got[0].ID)
}

func TestCheckoutClearsCart(t *testing.T) {
	h := newMarketHarness(t, backendFixture())

	placed := placeOrder(t, h)
	assert.Equal(t, "o1", placed.ID)

	assert.True(t, h.svc.Cart().IsEmpty())
	assert.Zero(t, h.svc.CartItemCount())
}

func TestCheckoutWithEmptyCartFails(t *testing.T) {
	h := newMarketHarness(t, backendFixture())

	_, err := h.svc.Checkout(context.Background(), order.CheckoutParams{})
	require.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestProcessEventMovesTrackedOrder(t *testing.T) {
	ctx := context.Background()
	h := newMarketHarness(t, backendFixture())
	placed := placeOrder(t, h)

	processor, ok := h.svc.(EventProcessor)
	require.True(t, ok)

	require.NoError(t, processor.ProcessEvent(ctx, &models.OrderEvent{
		ID: "e1", Type: models.OrderEventAccepted, OrderID: placed.ID,
	}))

	tracked, ok := h.orderSvc.TrackedOrder(placed.ID)
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusAccepted, tracked.Status)
}

func TestProcessEventIsDeduplicated(t *testing.T) {
	ctx := context.Background()
	h := newMarketHarness(t, backendFixture())
	placed := placeOrder(t, h)

	processor := h.svc.(EventProcessor)

	require.NoError(t, processor.ProcessEvent(ctx, &models.OrderEvent{
		ID: "e1", Type: models.OrderEventAccepted, OrderID: placed.ID,
	}))

	// A redelivery carries the same event id. Reusing the id with a different
	// type shows the drop happens before any handler runs.
	require.NoError(t, processor.ProcessEvent(ctx, &models.OrderEvent{
		ID: "e1", Type: models.OrderEventPreparing, OrderID: placed.ID,
	}))

	tracked, ok := h.orderSvc.TrackedOrder(placed.ID)
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusAccepted, tracked.Status)
}

func TestProcessEventUnknownTypeFails(t *testing.T) {
	h := newMarketHarness(t, backendFixture())

	processor := h.svc.(EventProcessor)
	err := processor.ProcessEvent(context.Background(), &models.OrderEvent{ID: "e9", Type: "order.mystery"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestCompletionEventClearsCart(t *testing.T) {
	ctx := context.Background()
	h := newMarketHarness(t, backendFixture())

	meal := models.Meal{ID: "m1", VendorID: "v1", Name: "Dal Tadka", Price: decimal.NewFromInt(9)}
	require.NoError(t, h.svc.AddToCart(ctx, meal, 1))

	processor := h.svc.(EventProcessor)
	require.NoError(t, processor.ProcessEvent(ctx, &models.OrderEvent{
		ID:      "e1",
		Type:    models.OrderEventCompleted,
		OrderID: "untracked",
	}))

	assert.True(t, h.svc.Cart().IsEmpty())
}
