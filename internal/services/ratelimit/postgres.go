package ratelimit

import (
	"context"
	"time"

	"petshop/internal/database"
)

// Repository counts recent orders in PostgreSQL.
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CountRecentOrders(ctx context.Context, originAddress, contactNumber string, window time.Duration) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, database.CountRecentOrdersSQL,
		originAddress, contactNumber, int(window.Seconds())).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
