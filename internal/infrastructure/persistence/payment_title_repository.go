package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/spiceshelf/backend/internal/infrastructure/persistence/models"
)

// GormPaymentTitleRepository implements billing.PaymentTitleRepository using GORM
type GormPaymentTitleRepository struct {
	db *gorm.DB
}

// NewGormPaymentTitleRepository creates a new GormPaymentTitleRepository
func NewGormPaymentTitleRepository(db *gorm.DB) *GormPaymentTitleRepository {
	return &GormPaymentTitleRepository{db: db}
}

// FindByID finds a payment title by its ID
func (r *GormPaymentTitleRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PaymentTitle, error) {
	var model models.PaymentTitleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByOrderID finds the non-canceled title for an order, if any
func (r *GormPaymentTitleRepository) FindActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*billing.PaymentTitle, error) {
	var model models.PaymentTitleModel
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status <> ?", orderID, billing.TitleStatusCanceled).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProviderTitleID finds a title by the provider's external reference
func (r *GormPaymentTitleRepository) FindByProviderTitleID(ctx context.Context, providerTitleID string) (*billing.PaymentTitle, error) {
	if providerTitleID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.PaymentTitleModel
	err := r.db.WithContext(ctx).
		Where("provider_title_id = ?", providerTitleID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderNSU finds the most recent title for an order NSU
func (r *GormPaymentTitleRepository) FindByOrderNSU(ctx context.Context, orderNSU string) (*billing.PaymentTitle, error) {
	var model models.PaymentTitleModel
	err := r.db.WithContext(ctx).
		Where("order_nsu = ?", orderNSU).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a payment title
func (r *GormPaymentTitleRepository) Save(ctx context.Context, title *billing.PaymentTitle) error {
	model := models.PaymentTitleModelFromDomain(title)
	return r.db.WithContext(ctx).Save(model).Error
}

// CreateForOrder inserts the title unless the order already has a non-canceled
// one. The existing-title lookup locks matching rows, but FOR UPDATE over zero
// rows locks nothing, so the insert itself lands ON CONFLICT against the
// partial unique index on (order_id) WHERE status <> 'CANCELED'. Either way
// the loser gets the winner's title back with created=false.
func (r *GormPaymentTitleRepository) CreateForOrder(ctx context.Context, title *billing.PaymentTitle) (*billing.PaymentTitle, bool, error) {
	var winner *billing.PaymentTitle
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PaymentTitleModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND status <> ?", title.OrderID, billing.TitleStatusCanceled).
			Order("created_at DESC").
			First(&existing).Error
		if err == nil {
			winner = existing.ToDomain()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		model := models.PaymentTitleModelFromDomain(title)
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Neq{Column: clause.Column{Name: "status"}, Value: string(billing.TitleStatusCanceled)},
			}},
			DoNothing: true,
		}).Create(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// a concurrent issuance won between our lookup and insert
			var raced models.PaymentTitleModel
			if err := tx.
				Where("order_id = ? AND status <> ?", title.OrderID, billing.TitleStatusCanceled).
				Order("created_at DESC").
				First(&raced).Error; err != nil {
				return err
			}
			winner = raced.ToDomain()
			return nil
		}
		winner = title
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return winner, created, nil
}

var _ billing.PaymentTitleRepository = (*GormPaymentTitleRepository)(nil)
