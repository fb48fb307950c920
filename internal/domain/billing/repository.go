package billing

import (
	"context"
	"time"

	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository persists checkout orders
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNSU(ctx context.Context, orderNSU string) (*Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, order *Order) error
	// CountRecentByCustomerEmail counts orders created for the email since the
	// given time. Admission control uses it as the shared rate-limit lookback.
	CountRecentByCustomerEmail(ctx context.Context, email string, since time.Time) (int64, error)
}

// PaymentTitleRepository persists payment titles
type PaymentTitleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentTitle, error)
	FindActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*PaymentTitle, error)
	FindByProviderTitleID(ctx context.Context, providerTitleID string) (*PaymentTitle, error)
	FindByOrderNSU(ctx context.Context, orderNSU string) (*PaymentTitle, error)
	Save(ctx context.Context, title *PaymentTitle) error
	// CreateForOrder inserts the title unless the order already has a
	// non-canceled one. The lookup and insert run in one transaction; when a
	// title already exists it is returned with created=false.
	CreateForOrder(ctx context.Context, title *PaymentTitle) (existing *PaymentTitle, created bool, err error)
}

// SettlementStore applies reconciliation transitions atomically.
// Each call covers the status check, both state updates, and the audit row in
// a single transaction so webhook replays yield exactly one transition and
// exactly one audit entry.
type SettlementStore interface {
	// ConfirmPaid settles the title and its order. Returns applied=false when
	// the title is already paid (replay no-op).
	ConfirmPaid(ctx context.Context, titleID uuid.UUID, paidAt time.Time, entry *AuditLogEntry) (applied bool, err error)
	// CancelTitle voids the title and cancels its order unless the title is
	// already paid. Returns applied=false for replays and for paid titles.
	CancelTitle(ctx context.Context, titleID uuid.UUID, reason string, entry *AuditLogEntry) (applied bool, err error)
}

// ConfigRepository persists the singleton boleto configuration
type ConfigRepository interface {
	// Get returns the stored configuration, or ErrConfigMissing
	Get(ctx context.Context) (*BoletoConfig, error)
	// Upsert stores the configuration, bumping its version
	Upsert(ctx context.Context, cfg *BoletoConfig) error
}

// AuditLogRepository persists append-only audit entries
type AuditLogRepository interface {
	Append(ctx context.Context, entry *AuditLogEntry) error
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]AuditLogEntry, error)
	FindRecent(ctx context.Context, limit int) ([]AuditLogEntry, error)
}
