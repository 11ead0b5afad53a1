package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"petshop/internal/database"
	"petshop/internal/models"
)

// Repository implements Store on PostgreSQL.
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) TrackedStock(ctx context.Context, ids []uuid.UUID) ([]models.StockRecord, error) {
	rows, err := r.db.Query(ctx, database.GetTrackedStockSQL, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.StockRecord
	for rows.Next() {
		var rec models.StockRecord
		if err := rows.Scan(&rec.ItemID, &rec.Name, &rec.TrackStock, &rec.Quantity, &rec.Threshold, &rec.IsAvailable); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *Repository) StockRecord(ctx context.Context, id uuid.UUID) (models.StockRecord, error) {
	var rec models.StockRecord
	err := r.db.QueryRow(ctx, database.GetStockRecordSQL, id).Scan(
		&rec.ItemID, &rec.Name, &rec.TrackStock, &rec.Quantity, &rec.Threshold, &rec.IsAvailable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StockRecord{}, models.ErrItemNotFound
		}
		return models.StockRecord{}, err
	}
	return rec, nil
}

func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.Exec(ctx, database.DecrementStockSQL, id, qty)
}

func (r *Repository) ApplyStockUpdate(ctx context.Context, id uuid.UUID, update models.StockUpdate) (models.StockRecord, error) {
	var rec models.StockRecord
	err := r.db.QueryRow(ctx, database.ApplyStockUpdateSQL,
		id, update.TrackStock, update.Quantity, update.Threshold, update.IsAvailable).Scan(
		&rec.ItemID, &rec.Name, &rec.TrackStock, &rec.Quantity, &rec.Threshold, &rec.IsAvailable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StockRecord{}, models.ErrItemNotFound
		}
		return models.StockRecord{}, err
	}
	return rec, nil
}

func (r *Repository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	return r.db.Exec(ctx, database.SetAvailabilitySQL, id, available)
}
