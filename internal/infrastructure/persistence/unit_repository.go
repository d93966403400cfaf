package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/catalog"
	"github.com/textileplan/backend/internal/domain/shared"
	"github.com/textileplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUnitRepository implements UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID finds a unit by its ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Unit, error) {
	var model models.UnitModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "unit", id.String())
	}
	return model.ToDomain(), nil
}

// FindByAbbreviation finds a unit by its unique abbreviation
func (r *GormUnitRepository) FindByAbbreviation(ctx context.Context, abbreviation string) (*catalog.Unit, error) {
	var model models.UnitModel
	if err := conn(ctx, r.db).First(&model, "abbreviation = ?", abbreviation).Error; err != nil {
		return nil, translateError(err, "unit", abbreviation)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a unit
func (r *GormUnitRepository) Save(ctx context.Context, unit *catalog.Unit) error {
	return translateError(conn(ctx, r.db).Save(models.UnitModelFromDomain(unit)).Error, "unit", unit.Abbreviation)
}

// Delete removes a unit that no input uses
func (r *GormUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		var inUse int64
		if err := tx.Model(&models.InputModel{}).Where("unit_id = ?", id).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return shared.NewReferentialIntegrityError("unit", id, fmt.Sprintf("used by %d input(s)", inUse))
		}
		return deleteByID(tx, &models.UnitModel{}, id)
	})
}

// deleteByID deletes one row and reports ErrNotFound when nothing matched
func deleteByID(tx *gorm.DB, model any, id uuid.UUID) error {
	result := tx.Delete(model, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ catalog.UnitRepository = (*GormUnitRepository)(nil)
