package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/spiceshelf/backend/internal/infrastructure/persistence/models"
)

// GormSettlementStore implements billing.SettlementStore using GORM.
// Every transition runs in one transaction covering the title row, the order
// row, and the audit entry, so a webhook replay observes the settled state
// and becomes a no-op instead of a second transition.
type GormSettlementStore struct {
	db *gorm.DB
}

// NewGormSettlementStore creates a new GormSettlementStore
func NewGormSettlementStore(db *gorm.DB) *GormSettlementStore {
	return &GormSettlementStore{db: db}
}

// ConfirmPaid settles the title and its order. Returns applied=false when the
// title is already paid.
func (s *GormSettlementStore) ConfirmPaid(ctx context.Context, titleID uuid.UUID, paidAt time.Time, entry *billing.AuditLogEntry) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		titleModel, err := lockTitle(tx, titleID)
		if err != nil {
			return err
		}

		title := titleModel.ToDomain()
		if title.Status == billing.TitleStatusPaid {
			return nil
		}
		if err := title.MarkPaid(paidAt); err != nil {
			return err
		}
		if err := tx.Save(models.PaymentTitleModelFromDomain(title)).Error; err != nil {
			return err
		}

		var orderModel models.OrderModel
		if err := tx.First(&orderModel, "id = ?", title.OrderID).Error; err != nil {
			return err
		}
		order := orderModel.ToDomain()
		if err := order.MarkPaid(paidAt); err != nil {
			return err
		}
		if err := tx.Omit("Items").Save(models.OrderModelFromDomain(order)).Error; err != nil {
			return err
		}

		if entry != nil {
			if err := appendAudit(tx, entry); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// CancelTitle voids the title and cancels its order unless the title is
// already paid. Returns applied=false for replays and for paid titles.
func (s *GormSettlementStore) CancelTitle(ctx context.Context, titleID uuid.UUID, reason string, entry *billing.AuditLogEntry) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		titleModel, err := lockTitle(tx, titleID)
		if err != nil {
			return err
		}

		title := titleModel.ToDomain()
		if title.Status == billing.TitleStatusPaid || title.Status == billing.TitleStatusCanceled {
			return nil
		}
		if err := title.Cancel(reason); err != nil {
			return err
		}
		if err := tx.Save(models.PaymentTitleModelFromDomain(title)).Error; err != nil {
			return err
		}

		var orderModel models.OrderModel
		if err := tx.First(&orderModel, "id = ?", title.OrderID).Error; err != nil {
			return err
		}
		order := orderModel.ToDomain()
		if order.Status != billing.OrderStatusPaid && order.Status != billing.OrderStatusCancelled {
			if err := order.Cancel(reason); err != nil {
				return err
			}
			if err := tx.Omit("Items").Save(models.OrderModelFromDomain(order)).Error; err != nil {
				return err
			}
		}

		if entry != nil {
			if err := appendAudit(tx, entry); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func lockTitle(tx *gorm.DB, titleID uuid.UUID) (*models.PaymentTitleModel, error) {
	var model models.PaymentTitleModel
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", titleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &model, nil
}

func appendAudit(tx *gorm.DB, entry *billing.AuditLogEntry) error {
	model, err := models.AuditLogModelFromDomain(entry)
	if err != nil {
		return err
	}
	return tx.Create(model).Error
}

var _ billing.SettlementStore = (*GormSettlementStore)(nil)
