package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/bulk"
	"github.com/textileplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormImportHistoryRepository implements ImportHistoryRepository using GORM
type GormImportHistoryRepository struct {
	db *gorm.DB
}

// NewGormImportHistoryRepository creates a new GormImportHistoryRepository
func NewGormImportHistoryRepository(db *gorm.DB) *GormImportHistoryRepository {
	return &GormImportHistoryRepository{db: db}
}

// FindByID finds an import history by ID
func (r *GormImportHistoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportHistory, error) {
	var model models.ImportHistoryModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "import_history", id.String())
	}
	return model.ToDomain(), nil
}

// FindRecent returns the latest runs for an entity type, newest first
func (r *GormImportHistoryRepository) FindRecent(ctx context.Context, entityType bulk.ImportEntityType, limit int) ([]*bulk.ImportHistory, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []models.ImportHistoryModel
	if err := conn(ctx, r.db).
		Where("entity_type = ?", entityType).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	histories := make([]*bulk.ImportHistory, len(rows))
	for i := range rows {
		histories[i] = rows[i].ToDomain()
	}
	return histories, nil
}

// Save saves an import history (create or update)
func (r *GormImportHistoryRepository) Save(ctx context.Context, history *bulk.ImportHistory) error {
	return conn(ctx, r.db).Save(models.ImportHistoryModelFromDomain(history)).Error
}

// Ensure GormImportHistoryRepository implements ImportHistoryRepository
var _ bulk.ImportHistoryRepository = (*GormImportHistoryRepository)(nil)
