package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/infrastructure/persistence/models"
)

// GormAuditLogRepository implements billing.AuditLogRepository using GORM.
// Entries are append-only; there is no update or delete path.
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append persists a new audit entry
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *billing.AuditLogEntry) error {
	model, err := models.AuditLogModelFromDomain(entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByEntity returns the audit trail of an entity, newest first
func (r *GormAuditLogRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]billing.AuditLogEntry, error) {
	var logModels []models.AuditLogModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Find(&logModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainEntries(logModels)
}

// FindRecent returns the newest audit entries across all entities
func (r *GormAuditLogRepository) FindRecent(ctx context.Context, limit int) ([]billing.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var logModels []models.AuditLogModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainEntries(logModels)
}

func toDomainEntries(logModels []models.AuditLogModel) ([]billing.AuditLogEntry, error) {
	entries := make([]billing.AuditLogEntry, len(logModels))
	for i, model := range logModels {
		entry, err := model.ToDomain()
		if err != nil {
			return nil, err
		}
		entries[i] = *entry
	}
	return entries, nil
}

var _ billing.AuditLogRepository = (*GormAuditLogRepository)(nil)
