package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Provider errors
var (
	// ErrProviderNotConfigured is returned when registered-mode production
	// issuance has no provider adapter wired. Fatal: issuance must never fall
	// back to fabricated data.
	ErrProviderNotConfigured = errors.New("provider: settlement provider not configured")
	// ErrProviderRequestFailed is returned when the provider rejects or fails a request
	ErrProviderRequestFailed = errors.New("provider: request failed")
	// ErrProviderInvalidResponse is returned when the provider response is unusable
	ErrProviderInvalidResponse = errors.New("provider: invalid response")
)

// ProviderIssueRequest asks the settlement provider to register a title
type ProviderIssueRequest struct {
	OrderID       uuid.UUID
	OrderNSU      string
	AmountCents   int64
	DueDate       time.Time
	CustomerName  string
	CustomerEmail string
	CustomerCPF   string
	Instructions  string
}

// ProviderIssueResponse is the provider's registered title data
type ProviderIssueResponse struct {
	ProviderTitleID string
	LinhaDigitavel  string
	Barcode         string
	DocumentRef     *string
}

// SettlementProvider is the port for third-party boleto registration.
// It is defined in the domain layer; the HTTP adapter lives in infrastructure.
type SettlementProvider interface {
	// Name identifies the provider (e.g. for PaymentTitle.Provider)
	Name() string
	// IssueTitle registers a payable title with the provider
	IssueTitle(ctx context.Context, req *ProviderIssueRequest) (*ProviderIssueResponse, error)
}

// WebhookEventType classifies inbound settlement events
type WebhookEventType string

const (
	WebhookEventConfirmed WebhookEventType = "CONFIRMED"
	WebhookEventReceived  WebhookEventType = "RECEIVED"
	WebhookEventOverdue   WebhookEventType = "OVERDUE"
	WebhookEventDeleted   WebhookEventType = "DELETED"
	WebhookEventCancelled WebhookEventType = "CANCELLED"
)

// IsValid returns true for a known event type
func (t WebhookEventType) IsValid() bool {
	switch t {
	case WebhookEventConfirmed, WebhookEventReceived, WebhookEventOverdue,
		WebhookEventDeleted, WebhookEventCancelled:
		return true
	}
	return false
}

// IsConfirmation returns true when the event settles the title
func (t WebhookEventType) IsConfirmation() bool {
	return t == WebhookEventConfirmed || t == WebhookEventReceived
}

// WebhookEvent is a provider-initiated settlement notification
type WebhookEvent struct {
	EventID         string
	Type            WebhookEventType
	ProviderTitleID string
	OrderReference  string
	PaidAmountCents int64
	PaidAt          *time.Time
}
