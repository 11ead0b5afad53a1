package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrRateLimited rejects a submission inside the cooldown window.
	ErrRateLimited = errors.New("an order was recently placed from this address or contact number")

	// ErrMissingIdentifier rejects a submission carrying neither a
	// network address nor a contact number. It wraps ErrRateLimited so
	// callers surface the same generic message for both, without
	// revealing which check fired.
	ErrMissingIdentifier = fmt.Errorf("%w: no client identifier present", ErrRateLimited)

	// ErrOrderNotFound is returned by read-side lookups.
	ErrOrderNotFound = errors.New("order not found")

	// ErrItemNotFound is returned for unknown catalog items.
	ErrItemNotFound = errors.New("menu item not found")
)

// ValidationError reports a malformed or incomplete submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// InsufficientStockError reports a stock shortfall for a single item.
// Available and Requested are included for customer display.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %d available, %d requested", e.Name, e.Available, e.Requested)
}

// PersistenceError reports a storage failure. The whole submission is
// safe to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
