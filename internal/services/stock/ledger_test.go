package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"petshop/internal/logger"
	"petshop/internal/models"
)

type fakeStore struct {
	records      map[uuid.UUID]models.StockRecord
	decrementErr error

	// beforeApply runs just before an ApplyStockUpdate merges, standing
	// in for a customer decrement racing the admin update.
	beforeApply func()
}

func newFakeStore(records ...models.StockRecord) *fakeStore {
	s := &fakeStore{records: make(map[uuid.UUID]models.StockRecord)}
	for _, rec := range records {
		s.records[rec.ItemID] = rec
	}
	return s
}

func (s *fakeStore) TrackedStock(_ context.Context, ids []uuid.UUID) ([]models.StockRecord, error) {
	var out []models.StockRecord
	for _, id := range ids {
		if rec, ok := s.records[id]; ok && rec.TrackStock {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeStore) StockRecord(_ context.Context, id uuid.UUID) (models.StockRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return models.StockRecord{}, models.ErrItemNotFound
	}
	return rec, nil
}

func (s *fakeStore) DecrementStock(_ context.Context, id uuid.UUID, qty int) error {
	if s.decrementErr != nil {
		return s.decrementErr
	}
	rec, ok := s.records[id]
	if !ok || !rec.TrackStock {
		return nil
	}
	s.records[id] = rec.ApplyDecrement(qty)
	return nil
}

func (s *fakeStore) ApplyStockUpdate(_ context.Context, id uuid.UUID, update models.StockUpdate) (models.StockRecord, error) {
	if s.beforeApply != nil {
		s.beforeApply()
	}
	rec, ok := s.records[id]
	if !ok {
		return models.StockRecord{}, models.ErrItemNotFound
	}
	next := update.Apply(rec)
	s.records[id] = next
	return next, nil
}

func (s *fakeStore) SetAvailability(_ context.Context, id uuid.UUID, available bool) error {
	rec := s.records[id]
	rec.IsAvailable = available
	s.records[id] = rec
	return nil
}

func tracked(name string, qty, threshold int) models.StockRecord {
	return models.StockRecord{
		ItemID:      uuid.New(),
		Name:        name,
		TrackStock:  true,
		Quantity:    qty,
		Threshold:   threshold,
		IsAvailable: qty > threshold,
	}
}

func TestCheckAvailability(t *testing.T) {
	adobo := tracked("Chicken Adobo", 10, 2)
	sisig := tracked("Pork Sisig", 1, 0)
	untracked := models.StockRecord{ItemID: uuid.New(), Name: "Rice", TrackStock: false}
	store := newFakeStore(adobo, sisig, untracked)
	ledger := NewLedger(store, logger.New("test"))

	t.Run("enough stock", func(t *testing.T) {
		err := ledger.CheckAvailability(context.Background(), map[uuid.UUID]int{adobo.ItemID: 10})
		if err != nil {
			t.Fatalf("CheckAvailability returned error: %v", err)
		}
	})

	t.Run("untracked items always pass", func(t *testing.T) {
		err := ledger.CheckAvailability(context.Background(), map[uuid.UUID]int{untracked.ItemID: 1000})
		if err != nil {
			t.Fatalf("CheckAvailability returned error: %v", err)
		}
	})

	t.Run("shortfall reports item and counts", func(t *testing.T) {
		err := ledger.CheckAvailability(context.Background(), map[uuid.UUID]int{sisig.ItemID: 2})
		var stockErr *models.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if stockErr.Name != "Pork Sisig" || stockErr.Available != 1 || stockErr.Requested != 2 {
			t.Fatalf("unexpected shortfall details: %+v", stockErr)
		}
	})

	t.Run("empty request is a no-op", func(t *testing.T) {
		if err := ledger.CheckAvailability(context.Background(), nil); err != nil {
			t.Fatalf("CheckAvailability returned error: %v", err)
		}
	})
}

func TestDecrement(t *testing.T) {
	adobo := tracked("Chicken Adobo", 10, 2)
	store := newFakeStore(adobo)
	ledger := NewLedger(store, logger.New("test"))

	err := ledger.Decrement(context.Background(), map[uuid.UUID]int{adobo.ItemID: 3})
	if err != nil {
		t.Fatalf("Decrement returned error: %v", err)
	}
	if got := store.records[adobo.ItemID].Quantity; got != 7 {
		t.Fatalf("expected quantity 7, got %d", got)
	}

	// Oversell clamps instead of going negative.
	if err := ledger.Decrement(context.Background(), map[uuid.UUID]int{adobo.ItemID: 100}); err != nil {
		t.Fatalf("Decrement returned error: %v", err)
	}
	rec := store.records[adobo.ItemID]
	if rec.Quantity != 0 || rec.IsAvailable {
		t.Fatalf("expected 0 stock and unavailable, got %d/%v", rec.Quantity, rec.IsAvailable)
	}
}

func TestUpdateStock(t *testing.T) {
	adobo := tracked("Chicken Adobo", 10, 2)
	store := newFakeStore(adobo)
	ledger := NewLedger(store, logger.New("test"))

	qty := 1
	rec, err := ledger.UpdateStock(context.Background(), adobo.ItemID, models.StockUpdate{Quantity: &qty})
	if err != nil {
		t.Fatalf("UpdateStock returned error: %v", err)
	}
	if rec.Quantity != 1 || rec.IsAvailable {
		t.Fatalf("expected 1 in stock and unavailable, got %d/%v", rec.Quantity, rec.IsAvailable)
	}

	if _, err := ledger.UpdateStock(context.Background(), uuid.New(), models.StockUpdate{}); !errors.Is(err, models.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestUpdateStock_KeepsConcurrentDecrement(t *testing.T) {
	adobo := tracked("Chicken Adobo", 10, 2)
	store := newFakeStore(adobo)
	ledger := NewLedger(store, logger.New("test"))

	// A customer buys 3 while the admin edit is in flight. The update
	// touches only the threshold, so the decremented quantity must
	// survive the merge.
	store.beforeApply = func() {
		store.records[adobo.ItemID] = store.records[adobo.ItemID].ApplyDecrement(3)
	}

	threshold := 5
	rec, err := ledger.UpdateStock(context.Background(), adobo.ItemID, models.StockUpdate{Threshold: &threshold})
	if err != nil {
		t.Fatalf("UpdateStock returned error: %v", err)
	}
	if rec.Quantity != 7 {
		t.Fatalf("expected the concurrent decrement to survive, got quantity %d", rec.Quantity)
	}
	if !rec.IsAvailable {
		t.Fatalf("expected availability recomputed as 7 > 5")
	}
}

func TestSetAvailability(t *testing.T) {
	adobo := tracked("Chicken Adobo", 10, 2)
	store := newFakeStore(adobo)
	ledger := NewLedger(store, logger.New("test"))

	if err := ledger.SetAvailability(context.Background(), adobo.ItemID, false); err != nil {
		t.Fatalf("SetAvailability returned error: %v", err)
	}
	if store.records[adobo.ItemID].IsAvailable {
		t.Fatalf("expected manual override to stick")
	}

	if err := ledger.SetAvailability(context.Background(), uuid.New(), true); !errors.Is(err, models.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}
