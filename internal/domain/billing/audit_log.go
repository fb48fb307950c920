package billing

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by the settlement flow
const (
	AuditActionPaymentConfirmedWebhook = "payment.confirmed.webhook"
	AuditActionPaymentConfirmedManual  = "payment.confirmed.manual"
	AuditActionTitleCanceled           = "payment.title.canceled"
	AuditActionConfigSaved             = "settings.boleto.saved"
)

// AuditDetails carries the structured payload of an audit entry
type AuditDetails struct {
	OrderNSU        string `json:"order_nsu,omitempty"`
	CustomerName    string `json:"customer_name,omitempty"`
	PaidAmountCents int64  `json:"paid_amount_cents,omitempty"`
	EventType       string `json:"event_type,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// AuditLogEntry is an append-only trace of a sensitive action.
// Entries are never updated or deleted.
type AuditLogEntry struct {
	ID         uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	ActorEmail string
	Details    AuditDetails
	CreatedAt  time.Time
}

// NewAuditLogEntry creates an audit entry for an entity action
func NewAuditLogEntry(action, entityType string, entityID uuid.UUID, details AuditDetails) *AuditLogEntry {
	return &AuditLogEntry{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now(),
	}
}

// WithActor attaches the acting principal to the entry
func (e *AuditLogEntry) WithActor(actorID uuid.UUID, actorEmail string) *AuditLogEntry {
	if actorID != uuid.Nil {
		id := actorID
		e.ActorID = &id
	}
	e.ActorEmail = actorEmail
	return e
}
