package stock

import (
	"context"

	"github.com/google/uuid"

	"petshop/internal/models"
)

// Store is the persistence surface of the stock ledger.
type Store interface {
	// TrackedStock returns records for the tracked subset of ids.
	// Untracked items are omitted: they are implicitly available.
	TrackedStock(ctx context.Context, ids []uuid.UUID) ([]models.StockRecord, error)

	// StockRecord returns one item's record, tracked or not.
	// Returns models.ErrItemNotFound for unknown items.
	StockRecord(ctx context.Context, id uuid.UUID) (models.StockRecord, error)

	// DecrementStock subtracts qty clamped at zero, as a single
	// storage-side update. Untracked items are a no-op.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error

	// ApplyStockUpdate merges a partial update as a single
	// storage-side statement and returns the resulting record, so a
	// concurrent decrement cannot be overwritten by stale values.
	// Returns models.ErrItemNotFound for unknown items. The merge
	// semantics are those of models.StockUpdate.Apply.
	ApplyStockUpdate(ctx context.Context, id uuid.UUID, update models.StockUpdate) (models.StockRecord, error)

	// SetAvailability writes only the availability flag.
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
}
