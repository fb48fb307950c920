package billing

import "context"

// EmailDispatcher is the collaborator port for customer-facing mail.
// Implementations are external; failures are logged and never propagated to
// the request path.
type EmailDispatcher interface {
	// SendBoletoIssued mails the payable document summary to the customer
	SendBoletoIssued(ctx context.Context, email, customerName, orderNSU, linhaDigitavel string) error
	// SendPaymentConfirmed mails the settlement confirmation to the customer
	SendPaymentConfirmed(ctx context.Context, email, customerName, orderNSU string) error
}

// AlertDispatcher is the collaborator port for operational alerts
// (messaging/chat notifications about order state changes).
type AlertDispatcher interface {
	// OrderStatusChanged notifies operators about an order transition
	OrderStatusChanged(ctx context.Context, orderNSU, status string) error
}
