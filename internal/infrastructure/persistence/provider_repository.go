package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/partner"
	"github.com/textileplan/backend/internal/domain/shared"
	"github.com/textileplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProviderRepository implements ProviderRepository using GORM
type GormProviderRepository struct {
	db *gorm.DB
}

// NewGormProviderRepository creates a new GormProviderRepository
func NewGormProviderRepository(db *gorm.DB) *GormProviderRepository {
	return &GormProviderRepository{db: db}
}

// FindByID finds a provider by its ID
func (r *GormProviderRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Provider, error) {
	var model models.ProviderModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "provider", id.String())
	}
	return model.ToDomain(), nil
}

// FindByName finds a provider by case-insensitive exact name
func (r *GormProviderRepository) FindByName(ctx context.Context, name string) (*partner.Provider, error) {
	var model models.ProviderModel
	if err := conn(ctx, r.db).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("id").
		First(&model).Error; err != nil {
		return nil, translateError(err, "provider", name)
	}
	return model.ToDomain(), nil
}

// ExistsByName checks if a provider with the case-insensitive name exists
func (r *GormProviderRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.ProviderModel{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a provider
func (r *GormProviderRepository) Save(ctx context.Context, provider *partner.Provider) error {
	model := models.ProviderModelFromDomain(provider)
	return translateError(conn(ctx, r.db).Save(model).Error, "provider", provider.Name)
}

// SaveBatch inserts multiple providers
func (r *GormProviderRepository) SaveBatch(ctx context.Context, providers []*partner.Provider) error {
	if len(providers) == 0 {
		return nil
	}
	batch := make([]*models.ProviderModel, len(providers))
	for i, p := range providers {
		batch[i] = models.ProviderModelFromDomain(p)
	}
	return translateError(conn(ctx, r.db).CreateInBatches(batch, 100).Error, "provider", "")
}

// Delete removes a provider together with its price facts and the BOM
// lines priced by them
func (r *GormProviderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		var priceIDs []uuid.UUID
		if err := tx.Model(&models.InputProviderModel{}).
			Where("provider_id = ?", id).
			Pluck("id", &priceIDs).Error; err != nil {
			return err
		}
		if len(priceIDs) > 0 {
			if err := tx.Where("input_provider_id IN ?", priceIDs).Delete(&models.BOMItemModel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", priceIDs).Delete(&models.InputProviderModel{}).Error; err != nil {
				return err
			}
		}
		return deleteByID(tx, &models.ProviderModel{}, id)
	})
}

// FindForExport lists providers matching the filter, ordered by name and then by ID
func (r *GormProviderRepository) FindForExport(ctx context.Context, filter shared.Filter) ([]partner.Provider, error) {
	scope, err := FilterScope(filter, ProviderFilterFields)
	if err != nil {
		return nil, err
	}

	var rows []models.ProviderModel
	if err := conn(ctx, r.db).Scopes(scope).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	providers := make([]partner.Provider, len(rows))
	for i := range rows {
		providers[i] = *rows[i].ToDomain()
	}
	return providers, nil
}

// Count returns the number of providers
func (r *GormProviderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.ProviderModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormProviderRepository implements ProviderRepository
var _ partner.ProviderRepository = (*GormProviderRepository)(nil)
