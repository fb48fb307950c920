package billing

import (
	"time"

	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypePaymentTitle = "PaymentTitle"

// Event type constants
const (
	EventTypeTitleIssued   = "PaymentTitleIssued"
	EventTypeTitlePaid     = "PaymentTitlePaid"
	EventTypeTitleCanceled = "PaymentTitleCanceled"
)

// TitleIssuedEvent is raised when a payment title is issued
type TitleIssuedEvent struct {
	shared.BaseDomainEvent
	TitleID     uuid.UUID  `json:"title_id"`
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNSU    string     `json:"order_nsu"`
	Mode        BoletoMode `json:"mode"`
	AmountCents int64      `json:"amount_cents"`
	DueDate     time.Time  `json:"due_date"`
}

// NewTitleIssuedEvent creates a new TitleIssuedEvent
func NewTitleIssuedEvent(title *PaymentTitle) *TitleIssuedEvent {
	return &TitleIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTitleIssued, AggregateTypePaymentTitle, title.ID),
		TitleID:         title.ID,
		OrderID:         title.OrderID,
		OrderNSU:        title.OrderNSU,
		Mode:            title.Mode,
		AmountCents:     title.AmountCents,
		DueDate:         title.DueDate,
	}
}

// EventType returns the event type name
func (e *TitleIssuedEvent) EventType() string {
	return EventTypeTitleIssued
}

// TitlePaidEvent is raised when a payment title settles
type TitlePaidEvent struct {
	shared.BaseDomainEvent
	TitleID     uuid.UUID  `json:"title_id"`
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNSU    string     `json:"order_nsu"`
	AmountCents int64      `json:"amount_cents"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// NewTitlePaidEvent creates a new TitlePaidEvent
func NewTitlePaidEvent(title *PaymentTitle) *TitlePaidEvent {
	return &TitlePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTitlePaid, AggregateTypePaymentTitle, title.ID),
		TitleID:         title.ID,
		OrderID:         title.OrderID,
		OrderNSU:        title.OrderNSU,
		AmountCents:     title.AmountCents,
		PaidAt:          title.PaidAt,
	}
}

// EventType returns the event type name
func (e *TitlePaidEvent) EventType() string {
	return EventTypeTitlePaid
}

// TitleCanceledEvent is raised when a payment title is voided
type TitleCanceledEvent struct {
	shared.BaseDomainEvent
	TitleID  uuid.UUID `json:"title_id"`
	OrderID  uuid.UUID `json:"order_id"`
	OrderNSU string    `json:"order_nsu"`
	Reason   string    `json:"reason"`
}

// NewTitleCanceledEvent creates a new TitleCanceledEvent
func NewTitleCanceledEvent(title *PaymentTitle, reason string) *TitleCanceledEvent {
	return &TitleCanceledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTitleCanceled, AggregateTypePaymentTitle, title.ID),
		TitleID:         title.ID,
		OrderID:         title.OrderID,
		OrderNSU:        title.OrderNSU,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *TitleCanceledEvent) EventType() string {
	return EventTypeTitleCanceled
}
