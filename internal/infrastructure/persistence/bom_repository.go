package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/production"
	"github.com/textileplan/backend/internal/domain/shared"
	"github.com/textileplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBOMTemplateRepository implements BOMTemplateRepository using GORM
type GormBOMTemplateRepository struct {
	db *gorm.DB
}

// NewGormBOMTemplateRepository creates a new GormBOMTemplateRepository
func NewGormBOMTemplateRepository(db *gorm.DB) *GormBOMTemplateRepository {
	return &GormBOMTemplateRepository{db: db}
}

// FindByID finds a template by its ID
func (r *GormBOMTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.BOMTemplate, error) {
	var model models.BOMTemplateModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "bom_template", id.String())
	}
	return model.ToDomain(), nil
}

// FindAll lists every template ordered by name
func (r *GormBOMTemplateRepository) FindAll(ctx context.Context) ([]production.BOMTemplate, error) {
	var rows []models.BOMTemplateModel
	if err := conn(ctx, r.db).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]production.BOMTemplate, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a template
func (r *GormBOMTemplateRepository) Save(ctx context.Context, t *production.BOMTemplate) error {
	return translateError(conn(ctx, r.db).Save(models.BOMTemplateModelFromDomain(t)).Error, "bom_template", t.Name)
}

// Delete removes a template and its lines. It fails while a product is
// built from the template.
func (r *GormBOMTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		var inUse int64
		if err := tx.Model(&models.EndProductModel{}).Where("bom_template_id = ?", id).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return shared.NewReferentialIntegrityError("bom_template", id, fmt.Sprintf("used by %d end product(s)", inUse))
		}
		if err := tx.Where("bom_template_id = ?", id).Delete(&models.BOMItemModel{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &models.BOMTemplateModel{}, id)
	})
}

var _ production.BOMTemplateRepository = (*GormBOMTemplateRepository)(nil)

// GormBOMItemRepository implements BOMItemRepository using GORM
type GormBOMItemRepository struct {
	db *gorm.DB
}

// NewGormBOMItemRepository creates a new GormBOMItemRepository
func NewGormBOMItemRepository(db *gorm.DB) *GormBOMItemRepository {
	return &GormBOMItemRepository{db: db}
}

// FindByID finds a BOM line by its ID
func (r *GormBOMItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.BOMItem, error) {
	var model models.BOMItemModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "bom_item", id.String())
	}
	return model.ToDomain(), nil
}

// FindByTemplate lists the lines of a template
func (r *GormBOMItemRepository) FindByTemplate(ctx context.Context, templateID uuid.UUID) ([]production.BOMItem, error) {
	return r.find(conn(ctx, r.db).Where("bom_template_id = ?", templateID))
}

// FindByInputProvider lists the lines priced by a price fact
func (r *GormBOMItemRepository) FindByInputProvider(ctx context.Context, inputProviderID uuid.UUID) ([]production.BOMItem, error) {
	return r.find(conn(ctx, r.db).Where("input_provider_id = ?", inputProviderID))
}

// FindAll lists every line
func (r *GormBOMItemRepository) FindAll(ctx context.Context) ([]production.BOMItem, error) {
	return r.find(conn(ctx, r.db))
}

func (r *GormBOMItemRepository) find(q *gorm.DB) ([]production.BOMItem, error) {
	var rows []models.BOMItemModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]production.BOMItem, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a line. A template holds one line per input.
func (r *GormBOMItemRepository) Save(ctx context.Context, item *production.BOMItem) error {
	err := conn(ctx, r.db).Save(models.BOMItemModelFromDomain(item)).Error
	return translateError(err, "bom_item", "input "+item.InputID.String()+" in template "+item.TemplateID.String())
}

// Delete removes a line
func (r *GormBOMItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(conn(ctx, r.db), &models.BOMItemModel{}, id)
}

var _ production.BOMItemRepository = (*GormBOMItemRepository)(nil)
