// Package market is the session-level facade of the homemade-meals
// marketplace client: one Service composing the cart engine, the
// authenticated API client, the meal catalog, and order checkout/tracking.
package market

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gomeals.io/market/api"
	"gomeals.io/market/auth"
	"gomeals.io/market/cart"
	"gomeals.io/market/config"
	"gomeals.io/market/driver"
	"gomeals.io/market/event"
	"gomeals.io/market/meals"
	"gomeals.io/market/models"
	"gomeals.io/market/order"
	"gomeals.io/market/store"
)

type Service interface {
	AddToCart(ctx context.Context, meal models.Meal, quantity int64) error
	RemoveFromCart(ctx context.Context, mealID string) error
	UpdateCartQuantity(ctx context.Context, mealID string, quantity int64) error
	ClearCart(ctx context.Context) error
	Cart() *models.Cart
	CartItemCount() uint64

	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, params auth.RegisterParams) (*models.User, error)
	CurrentUser(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context)

	FetchMeals(ctx context.Context) ([]*models.Meal, error)
	SearchMeals(ctx context.Context, filter meals.Filter) ([]*models.Meal, error)
	AddMeal(ctx context.Context, params meals.CreateMealParams) (*models.Meal, error)
	DeleteMeal(ctx context.Context, mealID string) error

	Checkout(ctx context.Context, params order.CheckoutParams) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

type service struct {
	cart  cart.Engine
	auth  auth.Service
	meals meals.Service
	order order.Service
	event event.Repository

	eventManager *EventManager
	workerPool   *WorkerPool

	natsConn *nats.Conn
	logger   *zap.Logger
}

func NewService(
	cartEngine cart.Engine, authSvc auth.Service, mealsSvc meals.Service, orderSvc order.Service, eventRepo event.Repository,
	natsConn *nats.Conn,
	logger *zap.Logger) Service {
	s := &service{
		cart:     cartEngine,
		auth:     authSvc,
		meals:    mealsSvc,
		order:    orderSvc,
		event:    eventRepo,
		natsConn: natsConn,
		logger:   logger,
	}
	s.eventManager = NewEventManager(natsConn, logger)
	s.workerPool = NewWorkerPool(10, s, logger)
	s.registerEventHandlers()

	if natsConn != nil {
		if err := s.eventManager.SubscribeToEvents(s.workerPool); err != nil {
			logger.Error("Failed to subscribe to order events", zap.Error(err))
		}
	}

	return s
}

// Bootstrap connects the configured infrastructure (redis snapshot store,
// NATS event stream, API client) and assembles the full service from it. The
// confirm and logout capabilities come from the embedding application.
func Bootstrap(ctx context.Context, cfg *config.Config, confirm cart.ConfirmFunc, logout api.LogoutFunc, logger *zap.Logger) (Service, error) {
	redisClient, err := driver.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	kv := store.NewRedis(redisClient)

	natsConn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	client := api.NewClient(cfg.APIBaseURL, kv, logout, cfg.RequestTimeout, logger)

	return NewService(
		cart.NewEngine(ctx, kv, confirm, logger),
		auth.NewService(client, kv, logger),
		meals.NewService(client, logger),
		order.NewService(client, logger),
		event.NewRepository(kv, logger),
		natsConn,
		logger,
	), nil
}

func (s *service) AddToCart(ctx context.Context, meal models.Meal, quantity int64) error {
	return s.cart.AddItem(ctx, meal, quantity)
}

func (s *service) RemoveFromCart(ctx context.Context, mealID string) error {
	return s.cart.RemoveItem(ctx, mealID)
}

func (s *service) UpdateCartQuantity(ctx context.Context, mealID string, quantity int64) error {
	return s.cart.UpdateQuantity(ctx, mealID, quantity)
}

func (s *service) ClearCart(ctx context.Context) error {
	return s.cart.Clear(ctx)
}

func (s *service) Cart() *models.Cart {
	return s.cart.Snapshot()
}

func (s *service) CartItemCount() uint64 {
	return s.cart.ItemCount()
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, error) {
	return s.auth.Login(ctx, email, password)
}

func (s *service) Register(ctx context.Context, params auth.RegisterParams) (*models.User, error) {
	return s.auth.Register(ctx, params)
}

func (s *service) CurrentUser(ctx context.Context) (*models.User, error) {
	return s.auth.CurrentUser(ctx)
}

func (s *service) Logout(ctx context.Context) {
	s.auth.Logout(ctx)
}

func (s *service) FetchMeals(ctx context.Context) ([]*models.Meal, error) {
	return s.meals.FetchMeals(ctx)
}

// SearchMeals fetches the catalog and filters it client-side.
func (s *service) SearchMeals(ctx context.Context, filter meals.Filter) ([]*models.Meal, error) {
	catalog, err := s.meals.FetchMeals(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(catalog), nil
}

func (s *service) AddMeal(ctx context.Context, params meals.CreateMealParams) (*models.Meal, error) {
	return s.meals.AddMeal(ctx, params)
}

func (s *service) DeleteMeal(ctx context.Context, mealID string) error {
	return s.meals.DeleteMeal(ctx, mealID)
}

// Checkout places an order from the current cart and clears the cart once the
// backend confirms it.
func (s *service) Checkout(ctx context.Context, params order.CheckoutParams) (*models.Order, error) {
	placed, err := s.order.Checkout(ctx, s.cart.Snapshot(), params)
	if err != nil {
		return nil, err
	}

	if err = s.cart.Clear(ctx); err != nil {
		return nil, fmt.Errorf("order placed but failed to clear cart: %w", err)
	}

	return placed, nil
}

func (s *service) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return s.order.ListOrders(ctx)
}

func (s *service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.order.GetOrder(ctx, orderID)
}

func (s *service) CancelOrder(ctx context.Context, orderID string) error {
	return s.order.CancelOrder(ctx, orderID)
}

// Shutdown quiesces the event worker pool.
func (s *service) Shutdown() {
	s.workerPool.Shutdown()
}
