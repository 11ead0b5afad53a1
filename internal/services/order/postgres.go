package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"petshop/internal/database"
	"petshop/internal/models"
)

// txStarter is the slice of database.DB the repository needs; the
// header-plus-items unit always runs inside one transaction.
type txStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	db txStarter
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// CreateOrder writes the order header and its line items in one
// transaction. The header insert carries the cooldown guard as a
// NOT EXISTS predicate inside the statement itself; when a prior order
// from either identifier falls inside the window the insert affects no
// rows, the transaction is rolled back, and the caller sees
// models.ErrRateLimited. A line-item failure rolls back the header
// too, so a header without items can never be observed.
func (r *Repository) CreateOrder(ctx context.Context, o *models.Order, cooldown time.Duration) (uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, &models.PersistenceError{Op: "begin order transaction", Err: err}
	}
	defer tx.Rollback(ctx)

	var id uuid.UUID
	var createdAt time.Time
	err = tx.QueryRow(ctx, database.InsertOrderSQL,
		o.CustomerName, o.ContactNumber, string(o.ServiceType), o.Address, o.PickupTime,
		o.PartySize, o.DineInTime, o.PaymentMethod, o.ReferenceNumber, o.Notes,
		o.Total, string(o.Status), o.IPAddress, o.ReceiptURL,
		int(cooldown.Seconds()),
	).Scan(&id, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, models.ErrRateLimited
		}
		return uuid.Nil, &models.PersistenceError{Op: "insert order", Err: err}
	}

	for i := range o.Items {
		item := &o.Items[i]

		variation, err := marshalOptional(item.Variation)
		if err != nil {
			return uuid.Nil, &models.PersistenceError{Op: "encode item variation", Err: err}
		}
		addOns, err := marshalOptional(item.AddOns)
		if err != nil {
			return uuid.Nil, &models.PersistenceError{Op: "encode item add-ons", Err: err}
		}

		_, err = tx.Exec(ctx, database.InsertOrderItemSQL,
			id, item.ItemID, item.Name, variation, addOns,
			item.UnitPrice, item.Quantity, item.Subtotal)
		if err != nil {
			return uuid.Nil, &models.PersistenceError{Op: fmt.Sprintf("insert order item %d", i), Err: err}
		}
		item.OrderID = id
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, &models.PersistenceError{Op: "commit order transaction", Err: err}
	}

	o.ID = id
	o.CreatedAt = createdAt
	return id, nil
}

// marshalOptional encodes v as JSON text for a jsonb column, keeping
// nil values NULL.
func marshalOptional(v interface{}) (*string, error) {
	switch val := v.(type) {
	case *models.Variation:
		if val == nil {
			return nil, nil
		}
	case []models.AddOn:
		if len(val) == 0 {
			return nil, nil
		}
	}

	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(body)
	return &s, nil
}
