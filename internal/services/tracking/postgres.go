package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"petshop/internal/database"
	"petshop/internal/models"
)

// Repository implements OrderRepo on PostgreSQL. The fragment query
// casts the uuid identifier to text once, at the storage layer, so
// ILIKE applies; no client-side scanning fallback.
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByIdentifierFragment(ctx context.Context, fragment string) (*models.Order, error) {
	return r.findOne(ctx, database.FindOrderByFragmentSQL, fragment)
}

func (r *Repository) FindMostRecentByContact(ctx context.Context, contactNumber string) (*models.Order, error) {
	return r.findOne(ctx, database.FindOrderByContactSQL, contactNumber)
}

func (r *Repository) findOne(ctx context.Context, sql, arg string) (*models.Order, error) {
	var order models.Order
	err := r.db.QueryRow(ctx, sql, arg).Scan(
		&order.ID,
		&order.CustomerName,
		&order.ContactNumber,
		&order.ServiceType,
		&order.Address,
		&order.PickupTime,
		&order.PartySize,
		&order.DineInTime,
		&order.PaymentMethod,
		&order.ReferenceNumber,
		&order.Notes,
		&order.Total,
		&order.Status,
		&order.IPAddress,
		&order.ReceiptURL,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := r.orderItems(ctx, &order)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *Repository) orderItems(ctx context.Context, order *models.Order) ([]models.OrderItem, error) {
	rows, err := r.db.Query(ctx, database.GetOrderItemsSQL, order.ID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		var variation, addOns []byte

		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ItemID,
			&item.Name,
			&variation,
			&addOns,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}

		if len(variation) > 0 {
			if err := json.Unmarshal(variation, &item.Variation); err != nil {
				return nil, fmt.Errorf("decode item variation: %w", err)
			}
		}
		if len(addOns) > 0 {
			if err := json.Unmarshal(addOns, &item.AddOns); err != nil {
				return nil, fmt.Errorf("decode item add-ons: %w", err)
			}
		}

		items = append(items, item)
	}

	return items, rows.Err()
}
