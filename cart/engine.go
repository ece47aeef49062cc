// Package cart owns the single authoritative cart for the current session and
// guarantees its two invariants: every item in a non-empty cart belongs to the
// same vendor, and the total is always re-derived from the items.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gomeals.io/market/models"
	"gomeals.io/market/store"
)

// snapshotKey is the fixed key the full cart snapshot is persisted under.
const snapshotKey = "market:cart"

var (
	// ErrVendorConflict reports a cross-vendor add the caller declined to
	// confirm. The cart is left untouched; this is a distinguishable no-op
	// outcome, not a failure of the engine.
	ErrVendorConflict = errors.New("cart: item belongs to a different vendor")

	// ErrInvalidQuantity rejects AddItem calls with a quantity below one.
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
)

// ConfirmFunc decides a cross-vendor conflict: adding a meal from newVendor
// would replace a cart currently held by currentVendor. Returning true
// authorizes the replacement. The capability is supplied by the caller so the
// engine itself has no I/O or blocking dependency.
type ConfirmFunc func(currentVendor, newVendor string) bool

type Engine interface {
	AddItem(ctx context.Context, meal models.Meal, quantity int64) error
	RemoveItem(ctx context.Context, mealID string) error
	UpdateQuantity(ctx context.Context, mealID string, quantity int64) error
	Clear(ctx context.Context) error
	ItemCount() uint64
	Total() decimal.Decimal
	Snapshot() *models.Cart
}

var _ Engine = (*engine)(nil)

type engine struct {
	mu      sync.Mutex
	cart    *models.Cart
	store   store.Store
	confirm ConfirmFunc
	logger  *zap.Logger
}

// NewEngine restores the persisted snapshot, if any, and returns the engine.
// An absent or malformed snapshot yields the canonical empty cart rather than
// an error; the session always starts usable.
func NewEngine(ctx context.Context, kv store.Store, confirm ConfirmFunc, logger *zap.Logger) Engine {
	e := &engine{
		cart:    models.NewCart(),
		store:   kv,
		confirm: confirm,
		logger:  logger,
	}

	raw, err := kv.Get(ctx, snapshotKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("Failed to read cart snapshot, starting empty", zap.Error(err))
		}
		return e
	}

	restored := models.NewCart()
	if err = json.Unmarshal(raw, restored); err != nil {
		logger.Warn("Corrupt cart snapshot, starting empty", zap.Error(err))
		return e
	}

	// The stored total is untrusted; re-derive it from the restored items.
	restored.RecalculateTotal()
	e.cart = restored

	return e
}

func (e *engine) AddItem(ctx context.Context, meal models.Meal, quantity int64) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cart.IsEmpty() && e.cart.VendorID != meal.VendorID {
		if !e.confirm(e.cart.VendorID, meal.VendorID) {
			return ErrVendorConflict
		}

		// Confirmed: replace the whole cart with the incoming item. An order
		// must be fulfillable by exactly one vendor.
		e.cart = &models.Cart{
			Items:      []models.CartItem{{Meal: meal, Quantity: uint64(quantity)}},
			VendorID:   meal.VendorID,
			VendorName: meal.VendorName,
		}
		e.cart.RecalculateTotal()

		e.logger.Info("Cart replaced with new vendor's item",
			zap.String("vendor_id", meal.VendorID),
			zap.String("meal_id", meal.ID))

		return e.persist(ctx)
	}

	if existing := e.findItem(meal.ID); existing != nil {
		existing.Quantity += uint64(quantity)
	} else {
		e.cart.Items = append(e.cart.Items, models.CartItem{Meal: meal, Quantity: uint64(quantity)})
		e.cart.VendorID = meal.VendorID
		e.cart.VendorName = meal.VendorName
	}
	e.cart.RecalculateTotal()

	return e.persist(ctx)
}

func (e *engine) RemoveItem(ctx context.Context, mealID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.cart.Items[:0]
	for _, item := range e.cart.Items {
		if item.Meal.ID != mealID {
			items = append(items, item)
		}
	}
	e.cart.Items = items

	// Last item gone: the cart no longer belongs to any vendor.
	if e.cart.IsEmpty() {
		e.cart.Items = nil
		e.cart.VendorID = ""
		e.cart.VendorName = ""
	}
	e.cart.RecalculateTotal()

	return e.persist(ctx)
}

func (e *engine) UpdateQuantity(ctx context.Context, mealID string, quantity int64) error {
	if quantity <= 0 {
		return e.RemoveItem(ctx, mealID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	item := e.findItem(mealID)
	if item == nil {
		// Unknown id is a silent no-op.
		return nil
	}

	item.Quantity = uint64(quantity)
	e.cart.RecalculateTotal()

	return e.persist(ctx)
}

func (e *engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cart = models.NewCart()

	return e.persist(ctx)
}

func (e *engine) ItemCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cart.ItemCount()
}

func (e *engine) Total() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cart.TotalAmount
}

// Snapshot returns a deep copy of the current cart.
func (e *engine) Snapshot() *models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cart.Clone()
}

func (e *engine) findItem(mealID string) *models.CartItem {
	for i := range e.cart.Items {
		if e.cart.Items[i].Meal.ID == mealID {
			return &e.cart.Items[i]
		}
	}
	return nil
}

// persist writes the full cart snapshot under the fixed key. Called with the
// engine lock held, after every mutation.
func (e *engine) persist(ctx context.Context) error {
	raw, err := json.Marshal(e.cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}
	if err = e.store.Set(ctx, snapshotKey, raw); err != nil {
		return fmt.Errorf("failed to persist cart snapshot: %w", err)
	}
	return nil
}
