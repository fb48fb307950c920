package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/spiceshelf/backend/internal/domain/billing"
)

// LogEmailDispatcher writes customer mails to the log instead of sending
// them. Used until a real mail integration is wired; the notification
// handlers only care about the port.
type LogEmailDispatcher struct {
	logger *zap.Logger
}

// NewLogEmailDispatcher creates a logging email dispatcher
func NewLogEmailDispatcher(logger *zap.Logger) *LogEmailDispatcher {
	return &LogEmailDispatcher{logger: logger}
}

// SendBoletoIssued logs the issued-document mail
func (d *LogEmailDispatcher) SendBoletoIssued(ctx context.Context, email, customerName, orderNSU, linhaDigitavel string) error {
	d.logger.Info("email: boleto issued",
		zap.String("to", email),
		zap.String("customer_name", customerName),
		zap.String("order_nsu", orderNSU),
		zap.String("linha_digitavel", linhaDigitavel),
	)
	return nil
}

// SendPaymentConfirmed logs the settlement confirmation mail
func (d *LogEmailDispatcher) SendPaymentConfirmed(ctx context.Context, email, customerName, orderNSU string) error {
	d.logger.Info("email: payment confirmed",
		zap.String("to", email),
		zap.String("customer_name", customerName),
		zap.String("order_nsu", orderNSU),
	)
	return nil
}

// LogAlertDispatcher writes operator alerts to the log
type LogAlertDispatcher struct {
	logger *zap.Logger
}

// NewLogAlertDispatcher creates a logging alert dispatcher
func NewLogAlertDispatcher(logger *zap.Logger) *LogAlertDispatcher {
	return &LogAlertDispatcher{logger: logger}
}

// OrderStatusChanged logs the order transition alert
func (d *LogAlertDispatcher) OrderStatusChanged(ctx context.Context, orderNSU, status string) error {
	d.logger.Info("alert: order status changed",
		zap.String("order_nsu", orderNSU),
		zap.String("status", status),
	)
	return nil
}

var (
	_ billing.EmailDispatcher = (*LogEmailDispatcher)(nil)
	_ billing.AlertDispatcher = (*LogAlertDispatcher)(nil)
)
