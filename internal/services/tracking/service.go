package tracking

import (
	"context"
	"strings"

	"petshop/internal/logger"
	"petshop/internal/models"
)

// minFragmentLength keeps fragment lookups selective enough to be
// useful; a one-character fragment matches nearly everything.
const minFragmentLength = 4

// Service provides read-only order lookups for customer tracking.
type Service struct {
	repo   OrderRepo
	logger *logger.Logger
}

// NewService creates a new tracking service
func NewService(repo OrderRepo, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
	}
}

// FindByIdentifierFragment looks an order up by a fragment of its
// opaque identifier, most recent match first.
func (s *Service) FindByIdentifierFragment(ctx context.Context, fragment, requestID string) (*models.Order, error) {
	fragment = strings.TrimSpace(fragment)
	if len(fragment) < minFragmentLength {
		return nil, &models.ValidationError{Field: "code", Reason: "must be at least 4 characters"}
	}

	order, err := s.repo.FindByIdentifierFragment(ctx, fragment)
	if err != nil {
		s.logLookupFailure("fragment", requestID, err)
		return nil, err
	}
	return order, nil
}

// FindMostRecentByContact looks up the latest order for a contact
// number.
func (s *Service) FindMostRecentByContact(ctx context.Context, contactNumber, requestID string) (*models.Order, error) {
	contactNumber = strings.TrimSpace(contactNumber)
	if contactNumber == "" {
		return nil, &models.ValidationError{Field: "contact", Reason: "is required"}
	}

	order, err := s.repo.FindMostRecentByContact(ctx, contactNumber)
	if err != nil {
		s.logLookupFailure("contact", requestID, err)
		return nil, err
	}
	return order, nil
}

func (s *Service) logLookupFailure(kind, requestID string, err error) {
	if err == models.ErrOrderNotFound {
		return
	}
	s.logger.Error("db_query_failed", "Order lookup failed", requestID, err, map[string]interface{}{
		"lookup": kind,
	})
}
