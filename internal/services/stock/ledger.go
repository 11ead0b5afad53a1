package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"petshop/internal/logger"
	"petshop/internal/models"
)

// Ledger is the authoritative inventory state for tracked catalog
// items. All cross-submission consistency comes from the storage
// layer; the ledger itself holds no mutable state.
type Ledger struct {
	store  Store
	logger *logger.Logger
}

func NewLedger(store Store, log *logger.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: log,
	}
}

// CheckAvailability verifies that every tracked item can satisfy the
// requested quantity. This is a fast-path pre-check for customer
// feedback; the clamped decrement remains correct without it.
func (l *Ledger) CheckAvailability(ctx context.Context, requested map[uuid.UUID]int) error {
	if len(requested) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}

	records, err := l.store.TrackedStock(ctx, ids)
	if err != nil {
		return &models.PersistenceError{Op: "load stock records", Err: err}
	}

	for _, rec := range records {
		need := requested[rec.ItemID]
		if rec.Quantity < need {
			return &models.InsufficientStockError{
				ItemID:    rec.ItemID,
				Name:      rec.Name,
				Available: rec.Quantity,
				Requested: need,
			}
		}
	}

	return nil
}

// Decrement subtracts the sold quantities from tracked items. Each
// subtraction is one storage-side update clamped at zero, so
// concurrent submissions cannot drive a quantity negative.
func (l *Ledger) Decrement(ctx context.Context, quantities map[uuid.UUID]int) error {
	for id, qty := range quantities {
		if qty <= 0 {
			continue
		}
		if err := l.store.DecrementStock(ctx, id, qty); err != nil {
			return &models.PersistenceError{Op: "decrement stock", Err: err}
		}
	}
	return nil
}

// Record returns one item's stock state.
func (l *Ledger) Record(ctx context.Context, id uuid.UUID) (models.StockRecord, error) {
	return l.store.StockRecord(ctx, id)
}

// UpdateStock applies an admin-side partial update as one storage-side
// statement. Availability is recomputed only when a stock field
// actually changes; a manual override on an otherwise untouched record
// survives. No read happens first, so a customer decrement landing
// concurrently keeps its effect on the untouched columns.
func (l *Ledger) UpdateStock(ctx context.Context, id uuid.UUID, update models.StockUpdate) (models.StockRecord, error) {
	next, err := l.store.ApplyStockUpdate(ctx, id, update)
	if err != nil {
		if errors.Is(err, models.ErrItemNotFound) {
			return models.StockRecord{}, err
		}
		return models.StockRecord{}, &models.PersistenceError{Op: "apply stock update", Err: err}
	}

	l.logger.Debug("stock_updated", "Stock record updated", "", map[string]interface{}{
		"item_id":        id.String(),
		"stock_quantity": next.Quantity,
		"is_available":   next.IsAvailable,
	})

	return next, nil
}

// SetAvailability is the manual override path.
func (l *Ledger) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	if _, err := l.store.StockRecord(ctx, id); err != nil {
		return err
	}
	if err := l.store.SetAvailability(ctx, id, available); err != nil {
		return &models.PersistenceError{Op: "set availability", Err: err}
	}
	return nil
}
