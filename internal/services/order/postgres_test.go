package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"petshop/internal/models"
)

// fakeTx satisfies pgx.Tx through embedding and overrides only the
// methods CreateOrder touches, so commit/rollback behavior is
// observable without a live database.
type fakeTx struct {
	pgx.Tx

	headerID   uuid.UUID
	headerErr  error
	execErr    error
	execCalls  int
	committed  bool
	rolledBack bool
}

func (t *fakeTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return &headerRow{id: t.headerID, err: t.headerErr}
}

func (t *fakeTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	t.execCalls++
	return pgconn.CommandTag{}, t.execErr
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type headerRow struct {
	id  uuid.UUID
	err error
}

func (r *headerRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*uuid.UUID) = r.id
	*dest[1].(*time.Time) = time.Now().UTC()
	return nil
}

type fakeStarter struct {
	tx *fakeTx
}

func (s *fakeStarter) Begin(_ context.Context) (pgx.Tx, error) {
	return s.tx, nil
}

func orderWithItems(n int) *models.Order {
	items := make([]models.OrderItem, n)
	for i := range items {
		items[i] = models.OrderItem{ItemID: uuid.New(), Name: "Chicken Adobo", Quantity: 1}
	}
	return &models.Order{
		CustomerName:  "Jane Doe",
		ContactNumber: "09171234567",
		ServiceType:   models.ServicePickup,
		PaymentMethod: "cash",
		Status:        models.StatusPending,
		Items:         items,
	}
}

func TestCreateOrder_CommitsHeaderAndItems(t *testing.T) {
	tx := &fakeTx{headerID: uuid.New()}
	repo := &Repository{db: &fakeStarter{tx: tx}}
	order := orderWithItems(2)

	id, err := repo.CreateOrder(context.Background(), order, time.Minute)
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if id != tx.headerID || order.ID != tx.headerID {
		t.Fatalf("expected the header id to be returned and recorded")
	}
	if tx.execCalls != 2 {
		t.Fatalf("expected one insert per line item, got %d", tx.execCalls)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("expected a committed transaction, got committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestCreateOrder_ItemFailureRollsBackHeader(t *testing.T) {
	tx := &fakeTx{headerID: uuid.New(), execErr: errors.New("connection reset")}
	repo := &Repository{db: &fakeStarter{tx: tx}}
	order := orderWithItems(2)

	_, err := repo.CreateOrder(context.Background(), order, time.Minute)

	var persistenceErr *models.PersistenceError
	if !errors.As(err, &persistenceErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if tx.committed {
		t.Fatalf("a failed line-item insert must not commit the header")
	}
	if !tx.rolledBack {
		t.Fatalf("expected the transaction to roll back")
	}
	if order.ID != uuid.Nil {
		t.Fatalf("a rolled-back order must not carry an id")
	}
}

func TestCreateOrder_GuardedInsertSurfacesRateLimit(t *testing.T) {
	tx := &fakeTx{headerErr: pgx.ErrNoRows}
	repo := &Repository{db: &fakeStarter{tx: tx}}

	_, err := repo.CreateOrder(context.Background(), orderWithItems(1), time.Minute)
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited from the guarded insert, got %v", err)
	}
	if tx.execCalls != 0 {
		t.Fatalf("expected no line-item inserts after a guarded-out header")
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected a rolled-back transaction")
	}
}
