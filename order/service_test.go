package order

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
	"gomeals.io/market/models"
	"gomeals.io/market/models/enum"
	"gomeals.io/market/store"
)

func newTestService(t *testing.T, handler http.Handler) (Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, store.NewMemory(), nil, 2*time.Second, zap.NewNop())
	return NewService(client, zap.NewNop()), srv
}

func cartFixture() *models.Cart {
	cart := models.NewCart()
	cart.Items = []models.CartItem{
		{Meal: models.Meal{ID: "m1", VendorID: "v1", Name: "dal", Price: decimal.NewFromInt(9)}, Quantity: 2},
	}
	cart.VendorID = "v1"
	cart.RecalculateTotal()
	return cart
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend must not be called for an empty cart")
	}))

	_, err := svc.Checkout(context.Background(), models.NewCart(), CheckoutParams{})
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.Checkout(context.Background(), nil, CheckoutParams{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutPostsCartLines(t *testing.T) {
	var got checkoutRequest
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/order", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(models.Order{
			ID:          "o1",
			VendorID:    got.VendorID,
			Items:       got.Items,
			Status:      enum.OrderStatusPending,
			TotalAmount: decimal.NewFromInt(18),
		})
	}))

	placed, err := svc.Checkout(context.Background(), cartFixture(), CheckoutParams{DeliveryOption: "pickup"})
	require.NoError(t, err)

	assert.NotEmpty(t, got.Reference)
	assert.Equal(t, "v1", got.VendorID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "m1", got.Items[0].MealID)
	assert.Equal(t, uint64(2), got.Items[0].Quantity)
	assert.True(t, got.Items[0].Subtotal.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, "pickup", got.DeliveryOption)

	assert.Equal(t, "o1", placed.ID)
	assert.Equal(t, enum.OrderStatusPending, placed.Status)

	tracked, ok := svc.TrackedOrder("o1")
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusPending, tracked.Status)
}

func TestApplyEventMovesTrackedOrder(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.Order{ID: "o1", Status: enum.OrderStatusPending})
	}))

	_, err := svc.GetOrder(context.Background(), "o1")
	require.NoError(t, err)

	require.NoError(t, svc.ApplyEvent(&models.OrderEvent{ID: "e1", Type: models.OrderEventAccepted, OrderID: "o1"}))
	tracked, ok := svc.TrackedOrder("o1")
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusAccepted, tracked.Status)

	// Invalid transitions are dropped, not applied.
	require.NoError(t, svc.ApplyEvent(&models.OrderEvent{ID: "e2", Type: models.OrderEventDelivered, OrderID: "o1"}))
	tracked, _ = svc.TrackedOrder("o1")
	assert.Equal(t, enum.OrderStatusAccepted, tracked.Status)

	// Events for unknown orders are ignored.
	require.NoError(t, svc.ApplyEvent(&models.OrderEvent{ID: "e3", Type: models.OrderEventAccepted, OrderID: "other"}))
}

func TestApplyEventUnknownType(t *testing.T) {
	svc, _ := newTestService(t, http.NotFoundHandler())

	err := svc.ApplyEvent(&models.OrderEvent{ID: "e1", Type: "order.mystery", OrderID: "o1"})
	require.ErrorIs(t, err, ErrUnknownEventType)
}

func TestCancelOrderChecksTransitionLocally(t *testing.T) {
	var cancelCalls int
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			cancelCalls++
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Order{ID: "o1", Status: enum.OrderStatusPreparing})
	}))

	_, err := svc.GetOrder(context.Background(), "o1")
	require.NoError(t, err)

	err = svc.CancelOrder(context.Background(), "o1")
	require.ErrorIs(t, err, ErrCannotCancel)
	assert.Zero(t, cancelCalls, "hopeless cancel never leaves the client")
}

func TestCancelOrderUpdatesTrackedStatus(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Order{ID: "o1", Status: enum.OrderStatusPending})
	}))

	_, err := svc.GetOrder(context.Background(), "o1")
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(context.Background(), "o1"))

	tracked, ok := svc.TrackedOrder("o1")
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusCancelled, tracked.Status)
}
