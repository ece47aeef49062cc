package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gomeals.io/market/models"
	"gomeals.io/market/store"
)

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), zap.NewNop())

	_, err := repo.GetByID(ctx, "e1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.Create(ctx, &models.OrderEvent{
		ID:        "e1",
		Type:      models.OrderEventAccepted,
		OrderID:   "o1",
		CreatedAt: time.Now(),
	}))

	got, err := repo.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.OrderID)
	assert.False(t, got.Processed)
}

func TestMarkAsProcessed(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), zap.NewNop())

	require.NoError(t, repo.Create(ctx, &models.OrderEvent{ID: "e1", Type: models.OrderEventAccepted, OrderID: "o1"}))
	require.NoError(t, repo.MarkAsProcessed(ctx, "e1"))

	got, err := repo.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, got.Processed)

	// Unrecorded ids cannot be marked.
	assert.Error(t, repo.MarkAsProcessed(ctx, "unknown"))
}

func TestCorruptEventTreatedAsUnseen(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	repo := NewRepository(kv, zap.NewNop())

	require.NoError(t, kv.Set(ctx, keyPrefix+"e1", []byte("{broken")))

	_, err := repo.GetByID(ctx, "e1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
