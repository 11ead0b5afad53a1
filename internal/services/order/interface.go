package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"petshop/internal/messaging"
	"petshop/internal/models"
)

// Store persists orders.
type Store interface {
	// CreateOrder writes the order header and all line items in one
	// transaction. The header insert carries the cooldown guard;
	// a guarded-out insert returns models.ErrRateLimited and leaves
	// nothing behind. On success the order's ID and CreatedAt are
	// filled in.
	CreateOrder(ctx context.Context, o *models.Order, cooldown time.Duration) (uuid.UUID, error)
}

// RateGate throttles repeat submissions per client identifier.
type RateGate interface {
	CheckAndAdmit(ctx context.Context, originAddress, contactNumber string) error
	RecordAdmission(ctx context.Context, originAddress, contactNumber string)
}

// StockLedger is the inventory surface the coordinator needs.
type StockLedger interface {
	CheckAvailability(ctx context.Context, requested map[uuid.UUID]int) error
	Decrement(ctx context.Context, quantities map[uuid.UUID]int) error
}

// ConfirmationPublisher relays completed orders to customers.
type ConfirmationPublisher interface {
	PublishOrderConfirmed(ctx context.Context, confirmation *messaging.OrderConfirmation) error
}
