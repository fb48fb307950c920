package billing

import (
	"fmt"
	"time"

	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentMethodBoleto is the only payment method this service issues
const PaymentMethodBoleto = "boleto"

// Digit widths of the encoded document
const (
	LinhaDigitavelLength = 47
)

// TitleStatus represents the lifecycle state of a payment title
type TitleStatus string

const (
	TitleStatusIssued   TitleStatus = "ISSUED"
	TitleStatusPaid     TitleStatus = "PAID"
	TitleStatusCanceled TitleStatus = "CANCELED"
)

// IsValid checks if the status is a valid TitleStatus
func (s TitleStatus) IsValid() bool {
	switch s {
	case TitleStatusIssued, TitleStatusPaid, TitleStatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of TitleStatus
func (s TitleStatus) String() string {
	return string(s)
}

// IsTerminal returns true for states with no outgoing transitions
func (s TitleStatus) IsTerminal() bool {
	return s == TitleStatusPaid || s == TitleStatusCanceled
}

// PaymentTitle is the issued payment-instrument aggregate, bound 1:1 to an order.
// Amount is frozen at issuance and must equal the order total.
type PaymentTitle struct {
	shared.BaseAggregateRoot
	OrderID         uuid.UUID
	OrderNSU        string
	Method          string
	Mode            BoletoMode
	Provider        string
	ProviderTitleID *string
	Status          TitleStatus
	AmountCents     int64
	DueDate         time.Time
	LinhaDigitavel  string
	Barcode         string
	DocumentRef     *string
	PaidAt          *time.Time
	CanceledAt      *time.Time
	CancelReason    string
}

// NewPaymentTitle creates an issued payment title for an order.
// linhaDigitavel must be exactly 47 digits and barcode digits only.
func NewPaymentTitle(order *Order, mode BoletoMode, provider string, amountCents int64, dueDate time.Time, linhaDigitavel, barcode string) (*PaymentTitle, error) {
	if order == nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order cannot be nil")
	}
	if amountCents <= 0 {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Title amount must be positive")
	}
	if amountCents != order.TotalAmountCents {
		return nil, shared.NewDomainError("AMOUNT_MISMATCH", "Title amount must equal the order total at issuance")
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_MODE", fmt.Sprintf("Unknown boleto mode %q", mode))
	}
	if len(linhaDigitavel) != LinhaDigitavelLength || !isDigits(linhaDigitavel) {
		return nil, shared.NewDomainError("INVALID_LINHA_DIGITAVEL",
			fmt.Sprintf("Linha digitavel must be exactly %d numeric characters", LinhaDigitavelLength))
	}
	if barcode == "" || !isDigits(barcode) {
		return nil, shared.NewDomainError("INVALID_BARCODE", "Barcode must contain digits only")
	}

	title := &PaymentTitle{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           order.ID,
		OrderNSU:          order.OrderNSU,
		Method:            PaymentMethodBoleto,
		Mode:              mode,
		Provider:          provider,
		Status:            TitleStatusIssued,
		AmountCents:       amountCents,
		DueDate:           dueDate,
		LinhaDigitavel:    linhaDigitavel,
		Barcode:           barcode,
	}
	title.AddDomainEvent(NewTitleIssuedEvent(title))
	return title, nil
}

// SetProviderTitleID records the external title reference once the provider responds
func (t *PaymentTitle) SetProviderTitleID(providerTitleID string) {
	if providerTitleID == "" {
		return
	}
	t.ProviderTitleID = &providerTitleID
	t.UpdatedAt = time.Now()
}

// SetDocumentRef attaches the rendered document reference
func (t *PaymentTitle) SetDocumentRef(ref string) {
	if ref == "" {
		return
	}
	t.DocumentRef = &ref
	t.UpdatedAt = time.Now()
}

// IsActive returns true while the title can still settle
func (t *PaymentTitle) IsActive() bool {
	return t.Status != TitleStatusCanceled
}

// MarkPaid settles the title. Replays are a no-op; a canceled title cannot settle.
func (t *PaymentTitle) MarkPaid(paidAt time.Time) error {
	if t.Status == TitleStatusPaid {
		return nil
	}
	if t.Status == TitleStatusCanceled {
		return shared.NewDomainError("INVALID_STATE", "Cannot settle a canceled title")
	}
	t.Status = TitleStatusPaid
	t.PaidAt = &paidAt
	t.UpdatedAt = time.Now()
	t.AddDomainEvent(NewTitlePaidEvent(t))
	return nil
}

// Cancel voids the title. A paid title is never retroactively un-paid.
func (t *PaymentTitle) Cancel(reason string) error {
	if t.Status == TitleStatusCanceled {
		return nil
	}
	if t.Status == TitleStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a paid title")
	}
	now := time.Now()
	t.Status = TitleStatusCanceled
	t.CanceledAt = &now
	t.CancelReason = reason
	t.UpdatedAt = now
	t.AddDomainEvent(NewTitleCanceledEvent(t, reason))
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
