package notification

import (
	"context"
	"fmt"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PaymentConfirmedHandler notifies the customer and the operations channel
// when an order settles
type PaymentConfirmedHandler struct {
	email  billing.EmailDispatcher
	alerts billing.AlertDispatcher
	logger *zap.Logger
}

// NewPaymentConfirmedHandler creates a new handler for order paid events
func NewPaymentConfirmedHandler(
	email billing.EmailDispatcher,
	alerts billing.AlertDispatcher,
	logger *zap.Logger,
) *PaymentConfirmedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentConfirmedHandler{
		email:  email,
		alerts: alerts,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PaymentConfirmedHandler) EventTypes() []string {
	return []string{billing.EventTypeOrderPaid}
}

// Handle processes an OrderPaidEvent by dispatching the confirmations
func (h *PaymentConfirmedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	paid, ok := event.(*billing.OrderPaidEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			billing.EventTypeOrderPaid, event.EventType())
	}

	if h.email != nil {
		if err := h.email.SendPaymentConfirmed(ctx, paid.CustomerEmail, paid.CustomerName, paid.OrderNSU); err != nil {
			h.logger.Warn("Confirmation mail failed",
				zap.String("order_nsu", paid.OrderNSU), zap.Error(err))
		}
	}
	if h.alerts != nil {
		if err := h.alerts.OrderStatusChanged(ctx, paid.OrderNSU, billing.OrderStatusPaid.String()); err != nil {
			h.logger.Warn("Operations alert failed",
				zap.String("order_nsu", paid.OrderNSU), zap.Error(err))
		}
	}
	return nil
}

// OrderStatusAlertHandler mirrors order lifecycle transitions to the
// operations channel
type OrderStatusAlertHandler struct {
	alerts billing.AlertDispatcher
	logger *zap.Logger
}

// NewOrderStatusAlertHandler creates a new handler for order lifecycle events
func NewOrderStatusAlertHandler(alerts billing.AlertDispatcher, logger *zap.Logger) *OrderStatusAlertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderStatusAlertHandler{alerts: alerts, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderStatusAlertHandler) EventTypes() []string {
	return []string{billing.EventTypeOrderCreated, billing.EventTypeOrderCancelled}
}

// Handle mirrors the transition to the alert channel
func (h *OrderStatusAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.alerts == nil {
		return nil
	}

	var nsu, status string
	switch e := event.(type) {
	case *billing.OrderCreatedEvent:
		nsu, status = e.OrderNSU, billing.OrderStatusPendingBoleto.String()
	case *billing.OrderCancelledEvent:
		nsu, status = e.OrderNSU, billing.OrderStatusCancelled.String()
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	if err := h.alerts.OrderStatusChanged(ctx, nsu, status); err != nil {
		h.logger.Warn("Operations alert failed",
			zap.String("order_nsu", nsu), zap.Error(err))
	}
	return nil
}
