package notification

import (
	"context"
	"fmt"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BoletoIssuedHandler mails the payable document to the customer when a
// title is issued. Dispatch failures are swallowed after logging: the title
// stands whether or not the mail goes out.
type BoletoIssuedHandler struct {
	orderRepo billing.OrderRepository
	titleRepo billing.PaymentTitleRepository
	email     billing.EmailDispatcher
	logger    *zap.Logger
}

// NewBoletoIssuedHandler creates a new handler for title issued events
func NewBoletoIssuedHandler(
	orderRepo billing.OrderRepository,
	titleRepo billing.PaymentTitleRepository,
	email billing.EmailDispatcher,
	logger *zap.Logger,
) *BoletoIssuedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoletoIssuedHandler{
		orderRepo: orderRepo,
		titleRepo: titleRepo,
		email:     email,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *BoletoIssuedHandler) EventTypes() []string {
	return []string{billing.EventTypeTitleIssued}
}

// Handle processes a TitleIssuedEvent by mailing the document summary
func (h *BoletoIssuedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	issued, ok := event.(*billing.TitleIssuedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			billing.EventTypeTitleIssued, event.EventType())
	}

	order, err := h.orderRepo.FindByID(ctx, issued.OrderID)
	if err != nil {
		h.logger.Warn("Order not found for issued-title mail",
			zap.String("order_nsu", issued.OrderNSU), zap.Error(err))
		return nil
	}
	title, err := h.titleRepo.FindByID(ctx, issued.TitleID)
	if err != nil {
		h.logger.Warn("Title not found for issued-title mail",
			zap.String("order_nsu", issued.OrderNSU), zap.Error(err))
		return nil
	}

	if err := h.email.SendBoletoIssued(ctx, order.Customer.Email, order.Customer.Name,
		order.OrderNSU, title.LinhaDigitavel); err != nil {
		h.logger.Warn("Issued-title mail failed",
			zap.String("order_nsu", issued.OrderNSU), zap.Error(err))
	}
	return nil
}
