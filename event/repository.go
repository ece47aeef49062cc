// Package event persists which order status events have already been seen,
// so redelivered messages are handled at most once.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gomeals.io/market/models"
	"gomeals.io/market/store"
)

const keyPrefix = "market:event:"

var _ Repository = (*repository)(nil)

type Repository interface {
	Create(ctx context.Context, event *models.OrderEvent) error
	GetByID(ctx context.Context, id string) (*models.OrderEvent, error)
	MarkAsProcessed(ctx context.Context, id string) error
}

type repository struct {
	store  store.Store
	logger *zap.Logger
}

func NewRepository(kv store.Store, logger *zap.Logger) Repository {
	return &repository{
		store:  kv,
		logger: logger,
	}
}

func (r *repository) Create(ctx context.Context, event *models.OrderEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}
	return r.store.Set(ctx, keyPrefix+event.ID, raw)
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.OrderEvent, error) {
	raw, err := r.store.Get(ctx, keyPrefix+id)
	if err != nil {
		return nil, err
	}

	event := new(models.OrderEvent)
	if err = json.Unmarshal(raw, event); err != nil {
		// A corrupt record cannot prove the event was handled; treat it as
		// unseen.
		r.logger.Warn("Corrupt stored event, treating as unseen", zap.String("event_id", id), zap.Error(err))
		return nil, store.ErrNotFound
	}

	return event, nil
}

func (r *repository) MarkAsProcessed(ctx context.Context, id string) error {
	event, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("event %s not recorded", id)
		}
		return err
	}

	event.Processed = true
	event.UpdatedAt = time.Now()

	return r.Create(ctx, event)
}
