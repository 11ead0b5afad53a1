package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceType represents how an order is fulfilled
type ServiceType string

const (
	ServiceDineIn   ServiceType = "dine_in"
	ServicePickup   ServiceType = "pickup"
	ServiceDelivery ServiceType = "delivery"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Variation is a selected item option, captured by value at order time
// so later catalog edits cannot rewrite history.
type Variation struct {
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// AddOn is an optional extra, captured by value at order time.
type AddOn struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// OrderItem is one purchased configuration of a catalog item. UnitPrice
// already includes the variation delta and add-on prices.
type OrderItem struct {
	ID        uuid.UUID       `json:"id,omitempty"`
	OrderID   uuid.UUID       `json:"order_id,omitempty"`
	ItemID    uuid.UUID       `json:"item_id"`
	Name      string          `json:"name"`
	Variation *Variation      `json:"variation,omitempty"`
	AddOns    []AddOn         `json:"add_ons,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// LineTotal returns unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is one customer purchase event.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	CustomerName    string          `json:"customer_name"`
	ContactNumber   string          `json:"contact_number"`
	ServiceType     ServiceType     `json:"service_type"`
	Address         *string         `json:"address,omitempty"`
	PickupTime      *string         `json:"pickup_time,omitempty"`
	PartySize       *int            `json:"party_size,omitempty"`
	DineInTime      *string         `json:"dine_in_time,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	IPAddress       *string         `json:"-"`
	ReceiptURL      *string         `json:"receipt_url,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}

// SubmitOrderRequest is the customer-facing submission payload.
// IPAddress is filled in by the HTTP layer, never by the client.
type SubmitOrderRequest struct {
	CustomerName    string          `json:"customer_name"`
	ContactNumber   string          `json:"contact_number"`
	ServiceType     string          `json:"service_type"`
	Address         *string         `json:"address,omitempty"`
	PickupTime      *string         `json:"pickup_time,omitempty"`
	PartySize       *int            `json:"party_size,omitempty"`
	DineInTime      *string         `json:"dine_in_time,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	ReceiptURL      *string         `json:"receipt_url,omitempty"`
	IPAddress       string          `json:"-"`
}

// SubmitOrderResponse is returned after a successful submission.
type SubmitOrderResponse struct {
	OrderID   uuid.UUID       `json:"order_id"`
	Status    OrderStatus     `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks the submission for completeness. The contact number
// is deliberately not checked here: a missing identifier is the rate
// limiter's concern so the response cannot be told apart from a
// cooldown rejection.
func (req *SubmitOrderRequest) Validate(maxItems int) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return &ValidationError{Field: "customer_name", Reason: "is required"}
	}
	if len(req.CustomerName) > 100 {
		return &ValidationError{Field: "customer_name", Reason: "must not exceed 100 characters"}
	}

	serviceType, err := parseServiceType(req.ServiceType)
	if err != nil {
		return err
	}
	if err := req.validateServiceFields(serviceType); err != nil {
		return err
	}

	if strings.TrimSpace(req.PaymentMethod) == "" {
		return &ValidationError{Field: "payment_method", Reason: "is required"}
	}

	if err := validateItems(req.Items, maxItems); err != nil {
		return err
	}

	return req.validateTotal()
}

// parseServiceType validates the service type field
func parseServiceType(serviceType string) (ServiceType, error) {
	switch ServiceType(serviceType) {
	case ServiceDineIn, ServicePickup, ServiceDelivery:
		return ServiceType(serviceType), nil
	default:
		return "", &ValidationError{Field: "service_type", Reason: "must be one of: dine_in, pickup, delivery"}
	}
}

// validateServiceFields checks the fields required by each service type
func (req *SubmitOrderRequest) validateServiceFields(serviceType ServiceType) error {
	switch serviceType {
	case ServiceDelivery:
		if req.Address == nil || strings.TrimSpace(*req.Address) == "" {
			return &ValidationError{Field: "address", Reason: "is required for delivery orders"}
		}
	case ServicePickup:
		if req.PickupTime == nil || strings.TrimSpace(*req.PickupTime) == "" {
			return &ValidationError{Field: "pickup_time", Reason: "is required for pickup orders"}
		}
	case ServiceDineIn:
		if req.PartySize == nil || *req.PartySize < 1 {
			return &ValidationError{Field: "party_size", Reason: "must be at least 1 for dine-in orders"}
		}
		if req.DineInTime == nil || strings.TrimSpace(*req.DineInTime) == "" {
			return &ValidationError{Field: "dine_in_time", Reason: "is required for dine-in orders"}
		}
	}
	return nil
}

// validateItems validates the order line items
func validateItems(items []OrderItem, maxItems int) error {
	if len(items) == 0 {
		return &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	if maxItems > 0 && len(items) > maxItems {
		return &ValidationError{Field: "items", Reason: fmt.Sprintf("must not contain more than %d items", maxItems)}
	}

	for i, item := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		if item.ItemID == uuid.Nil {
			return &ValidationError{Field: prefix + ".item_id", Reason: "is required"}
		}
		if strings.TrimSpace(item.Name) == "" {
			return &ValidationError{Field: prefix + ".name", Reason: "is required"}
		}
		if item.Quantity < 1 {
			return &ValidationError{Field: prefix + ".quantity", Reason: "must be at least 1"}
		}
		if item.UnitPrice.IsNegative() {
			return &ValidationError{Field: prefix + ".unit_price", Reason: "must not be negative"}
		}
		for j, addOn := range item.AddOns {
			if addOn.Quantity < 1 {
				return &ValidationError{Field: fmt.Sprintf("%s.add_ons[%d].quantity", prefix, j), Reason: "must be at least 1"}
			}
		}
	}
	return nil
}

// validateTotal recomputes the total from line items server-side and
// rejects submissions whose claimed total disagrees.
func (req *SubmitOrderRequest) validateTotal() error {
	sum := decimal.Zero
	for _, item := range req.Items {
		sum = sum.Add(item.LineTotal())
	}
	if !req.Total.Equal(sum) {
		return &ValidationError{Field: "total", Reason: fmt.Sprintf("does not match line items (expected %s)", sum.StringFixed(2))}
	}
	return nil
}

// ToOrder builds the Order to persist. Subtotals and the total are
// recomputed from unit prices, and fields belonging to other service
// types are cleared.
func (req *SubmitOrderRequest) ToOrder() *Order {
	items := make([]OrderItem, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		item.Subtotal = item.LineTotal()
		items[i] = item
		total = total.Add(item.Subtotal)
	}

	order := &Order{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		ContactNumber:   strings.TrimSpace(req.ContactNumber),
		ServiceType:     ServiceType(req.ServiceType),
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		Total:           total,
		Status:          StatusPending,
		ReceiptURL:      req.ReceiptURL,
		Items:           items,
	}

	switch order.ServiceType {
	case ServiceDelivery:
		order.Address = req.Address
	case ServicePickup:
		order.PickupTime = req.PickupTime
	case ServiceDineIn:
		order.PartySize = req.PartySize
		order.DineInTime = req.DineInTime
	}

	if ip := strings.TrimSpace(req.IPAddress); ip != "" {
		order.IPAddress = &ip
	}

	return order
}
