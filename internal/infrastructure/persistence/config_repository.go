package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/infrastructure/persistence/models"
)

// GormConfigRepository implements billing.ConfigRepository using GORM.
// The configuration lives in a single fixed-ID row.
type GormConfigRepository struct {
	db *gorm.DB
}

// NewGormConfigRepository creates a new GormConfigRepository
func NewGormConfigRepository(db *gorm.DB) *GormConfigRepository {
	return &GormConfigRepository{db: db}
}

// Get returns the stored configuration, or billing.ErrConfigMissing
func (r *GormConfigRepository) Get(ctx context.Context) (*billing.BoletoConfig, error) {
	var model models.BoletoConfigModel
	err := r.db.WithContext(ctx).
		First(&model, "id = ?", models.BoletoConfigSingletonID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrConfigMissing
		}
		return nil, err
	}
	return model.ToDomain()
}

// Upsert stores the configuration, bumping its version
func (r *GormConfigRepository) Upsert(ctx context.Context, cfg *billing.BoletoConfig) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.BoletoConfigModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", models.BoletoConfigSingletonID).Error
		switch {
		case err == nil:
			cfg.Version = current.Version + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			cfg.Version = 1
		default:
			return err
		}

		cfg.UpdatedAt = time.Now()
		model := &models.BoletoConfigModel{}
		if err := model.FromDomain(cfg); err != nil {
			return err
		}
		return tx.Save(model).Error
	})
}

var _ billing.ConfigRepository = (*GormConfigRepository)(nil)
