package tracking

import (
	"context"

	"petshop/internal/models"
)

// OrderRepo is the read-side order lookup surface.
type OrderRepo interface {
	// FindByIdentifierFragment returns the most recent order whose
	// identifier contains the fragment, case-insensitively, with its
	// line items. Returns models.ErrOrderNotFound when nothing matches.
	FindByIdentifierFragment(ctx context.Context, fragment string) (*models.Order, error)

	// FindMostRecentByContact returns the most recent order placed
	// with the exact contact number, with its line items.
	FindMostRecentByContact(ctx context.Context, contactNumber string) (*models.Order, error)
}
