package messaging

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfirmationItem is one line of a confirmed order as relayed to
// customers.
type ConfirmationItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// OrderConfirmation is published after an order has been durably
// persisted. It carries everything a relay needs to format a
// human-readable confirmation message.
type OrderConfirmation struct {
	OrderID       uuid.UUID          `json:"order_id"`
	CustomerName  string             `json:"customer_name"`
	ContactNumber string             `json:"contact_number"`
	ServiceType   string             `json:"service_type"`
	PaymentMethod string             `json:"payment_method"`
	Total         decimal.Decimal    `json:"total"`
	Items         []ConfirmationItem `json:"items"`
	CreatedAt     time.Time          `json:"created_at"`
}
