package notification

import (
	"context"
	"fmt"
	"strings"

	"petshop/internal/logger"
	"petshop/internal/messaging"
)

// Relay consumes order confirmations and renders them as customer
// messages. The rendered text goes to the log for now; a delivery
// channel (SMS, chat webhook) plugs in behind Deliver.
type Relay struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
	deliver  func(ctx context.Context, contactNumber, text string) error
}

// NewRelay creates a new confirmation relay
func NewRelay(consumer *messaging.Consumer, log *logger.Logger) *Relay {
	r := &Relay{
		consumer: consumer,
		logger:   log,
	}
	r.deliver = r.logDelivery
	return r
}

// Start begins consuming confirmations until the context is cancelled
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("relay_started", "Confirmation relay started", "", nil)
	return r.consumer.StartConsuming(ctx, r.handleConfirmation)
}

// Stop stops the relay
func (r *Relay) Stop() error {
	r.logger.Info("relay_stopped", "Confirmation relay stopped", "", nil)
	return r.consumer.Close()
}

func (r *Relay) handleConfirmation(ctx context.Context, body []byte) error {
	var confirmation messaging.OrderConfirmation
	if err := messaging.ParseMessage(body, &confirmation); err != nil {
		return fmt.Errorf("failed to parse confirmation: %w", err)
	}

	text := FormatConfirmation(&confirmation)
	return r.deliver(ctx, confirmation.ContactNumber, text)
}

func (r *Relay) logDelivery(_ context.Context, contactNumber, text string) error {
	r.logger.Info("confirmation_relayed", text, "", map[string]interface{}{
		"contact_number": contactNumber,
	})
	return nil
}

// FormatConfirmation renders a confirmation as a short customer-facing
// message.
func FormatConfirmation(c *messaging.OrderConfirmation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi %s! Your order %s is confirmed.\n", c.CustomerName, shortID(c.OrderID.String()))
	for _, item := range c.Items {
		fmt.Fprintf(&b, "  %dx %s - PHP %s\n", item.Quantity, item.Name, item.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: PHP %s (%s).\n", c.Total.StringFixed(2), paymentLabel(c.PaymentMethod))
	b.WriteString(serviceLine(c.ServiceType))

	return b.String()
}

// shortID keeps the tail of the identifier, which is what customers
// quote back when tracking an order.
func shortID(id string) string {
	const tail = 8
	if len(id) <= tail {
		return id
	}
	return id[len(id)-tail:]
}

func paymentLabel(method string) string {
	switch method {
	case "cash":
		return "pay with cash"
	case "gcash":
		return "paid via GCash"
	default:
		return method
	}
}

func serviceLine(serviceType string) string {
	switch serviceType {
	case "delivery":
		return "We'll deliver it to your address shortly."
	case "pickup":
		return "We'll have it ready for pickup at your chosen time."
	case "dine_in":
		return "Your table will be ready at your reserved time."
	default:
		return "Thank you for your order!"
	}
}
