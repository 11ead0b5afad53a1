package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"petshop/internal/logger"
	"petshop/internal/messaging"
	"petshop/internal/metrics"
	"petshop/internal/models"
)

// Service coordinates order submission: validation, rate gate, stock
// check, atomic persistence, stock decrement, confirmation publish.
// All shared state lives in the storage layer, so concurrent
// submissions only meet each other there.
type Service struct {
	store     Store
	limiter   RateGate
	ledger    StockLedger
	publisher ConfirmationPublisher
	logger    *logger.Logger
	metrics   *metrics.Registry
	cooldown  time.Duration
	maxItems  int
}

func NewService(store Store, limiter RateGate, ledger StockLedger, publisher ConfirmationPublisher,
	log *logger.Logger, reg *metrics.Registry, cooldown time.Duration, maxItems int) *Service {
	return &Service{
		store:     store,
		limiter:   limiter,
		ledger:    ledger,
		publisher: publisher,
		logger:    log,
		metrics:   reg,
		cooldown:  cooldown,
		maxItems:  maxItems,
	}
}

// SubmitOrder turns a cart submission into a persisted order as an
// all-or-nothing unit, then decrements stock and publishes the
// confirmation as non-fatal follow-ups.
func (s *Service) SubmitOrder(ctx context.Context, req *models.SubmitOrderRequest, requestID string) (*models.SubmitOrderResponse, error) {
	start := time.Now()
	resp, err := s.submit(ctx, req, requestID)
	s.observe(time.Since(start), err)
	return resp, err
}

func (s *Service) submit(ctx context.Context, req *models.SubmitOrderRequest, requestID string) (*models.SubmitOrderResponse, error) {
	if err := req.Validate(s.maxItems); err != nil {
		return nil, err
	}

	if err := s.limiter.CheckAndAdmit(ctx, req.IPAddress, req.ContactNumber); err != nil {
		return nil, err
	}

	order := req.ToOrder()
	quantities := aggregateQuantities(order.Items)

	if err := s.ledger.CheckAvailability(ctx, quantities); err != nil {
		return nil, err
	}

	orderID, err := s.store.CreateOrder(ctx, order, s.cooldown)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_created", "Order persisted", requestID, map[string]interface{}{
		"order_id":     orderID.String(),
		"service_type": string(order.ServiceType),
		"total":        order.Total.StringFixed(2),
		"item_count":   len(order.Items),
	})

	s.limiter.RecordAdmission(ctx, req.IPAddress, req.ContactNumber)

	// The order is durable at this point. A failed decrement leaves
	// stock drift, which is preferable to losing a confirmed order.
	if err := s.ledger.Decrement(ctx, quantities); err != nil {
		s.metrics.DecrementWarnings.Inc()
		s.logger.Error("stock_decrement_failed", "Stock decrement failed after order creation", requestID, err, map[string]interface{}{
			"order_id": orderID.String(),
		})
	}

	s.publishConfirmation(ctx, order, requestID)

	return &models.SubmitOrderResponse{
		OrderID:   orderID,
		Status:    order.Status,
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
	}, nil
}

// aggregateQuantities sums quantities per catalog item. Two line items
// referencing the same item (different variations, say) compete for
// the same stock.
func aggregateQuantities(items []models.OrderItem) map[uuid.UUID]int {
	agg := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		agg[item.ItemID] += item.Quantity
	}
	return agg
}

// publishConfirmation relays the completed order. Best effort; the
// customer already has their order id.
func (s *Service) publishConfirmation(ctx context.Context, order *models.Order, requestID string) {
	if s.publisher == nil {
		return
	}

	items := make([]messaging.ConfirmationItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = messaging.ConfirmationItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Subtotal: item.Subtotal,
		}
	}

	confirmation := &messaging.OrderConfirmation{
		OrderID:       order.ID,
		CustomerName:  order.CustomerName,
		ContactNumber: order.ContactNumber,
		ServiceType:   string(order.ServiceType),
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		Items:         items,
		CreatedAt:     order.CreatedAt,
	}

	if err := s.publisher.PublishOrderConfirmed(ctx, confirmation); err != nil {
		s.logger.Error("confirmation_publish_failed", "Failed to publish order confirmation", requestID, err, map[string]interface{}{
			"order_id": order.ID.String(),
		})
	}
}

func (s *Service) observe(elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.SubmitLatencySec.Observe(elapsed.Seconds())

	var validationErr *models.ValidationError
	var stockErr *models.InsufficientStockError
	switch {
	case err == nil:
		s.metrics.OrdersAccepted.Inc()
	case errors.Is(err, models.ErrRateLimited):
		s.metrics.OrdersRateLimited.Inc()
	case errors.As(err, &stockErr):
		s.metrics.OrdersOutOfStock.Inc()
	case errors.As(err, &validationErr):
		s.metrics.OrdersRejected.Inc()
	default:
		s.metrics.OrdersFailed.Inc()
	}
}
