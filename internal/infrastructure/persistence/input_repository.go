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

// GormInputRepository implements InputRepository using GORM
type GormInputRepository struct {
	db *gorm.DB
}

// NewGormInputRepository creates a new GormInputRepository
func NewGormInputRepository(db *gorm.DB) *GormInputRepository {
	return &GormInputRepository{db: db}
}

// FindByID finds an input by its ID
func (r *GormInputRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Input, error) {
	var model models.InputModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "input", id.String())
	}
	return model.ToDomain(), nil
}

// Save creates or updates an input
func (r *GormInputRepository) Save(ctx context.Context, input *catalog.Input) error {
	return translateError(conn(ctx, r.db).Save(models.InputModelFromDomain(input)).Error, "input", input.Name)
}

// Delete removes an input and its price facts. It fails while BOM lines
// reference the input.
func (r *GormInputRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		var inUse int64
		if err := tx.Model(&models.BOMItemModel{}).Where("input_id = ?", id).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return shared.NewReferentialIntegrityError("input", id, fmt.Sprintf("used by %d BOM item(s)", inUse))
		}
		if err := tx.Where("input_id = ?", id).Delete(&models.InputProviderModel{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &models.InputModel{}, id)
	})
}

var _ catalog.InputRepository = (*GormInputRepository)(nil)

// GormInputProviderRepository implements InputProviderRepository using GORM
type GormInputProviderRepository struct {
	db *gorm.DB
}

// NewGormInputProviderRepository creates a new GormInputProviderRepository
func NewGormInputProviderRepository(db *gorm.DB) *GormInputProviderRepository {
	return &GormInputProviderRepository{db: db}
}

// FindByID finds a price fact by its ID
func (r *GormInputProviderRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.InputProvider, error) {
	var model models.InputProviderModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "input_provider", id.String())
	}
	return model.ToDomain(), nil
}

// FindByInputAndProvider finds the price fact for an (input, provider) pair
func (r *GormInputProviderRepository) FindByInputAndProvider(ctx context.Context, inputID, providerID uuid.UUID) (*catalog.InputProvider, error) {
	var model models.InputProviderModel
	if err := conn(ctx, r.db).
		Where("input_id = ? AND provider_id = ?", inputID, providerID).
		First(&model).Error; err != nil {
		return nil, translateError(err, "input_provider", inputID.String()+"/"+providerID.String())
	}
	return model.ToDomain(), nil
}

// FindByInput lists the price facts of an input
func (r *GormInputProviderRepository) FindByInput(ctx context.Context, inputID uuid.UUID) ([]catalog.InputProvider, error) {
	var rows []models.InputProviderModel
	if err := conn(ctx, r.db).Where("input_id = ?", inputID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.InputProvider, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a price fact. One fact exists per (input, provider).
func (r *GormInputProviderRepository) Save(ctx context.Context, ip *catalog.InputProvider) error {
	err := conn(ctx, r.db).Save(models.InputProviderModelFromDomain(ip)).Error
	return translateError(err, "input_provider", "input "+ip.InputID.String()+" and provider "+ip.ProviderID.String())
}

// Delete removes a price fact and the BOM lines priced by it
func (r *GormInputProviderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Where("input_provider_id = ?", id).Delete(&models.BOMItemModel{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &models.InputProviderModel{}, id)
	})
}

var _ catalog.InputProviderRepository = (*GormInputProviderRepository)(nil)
