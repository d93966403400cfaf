package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/production"
	"github.com/textileplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormEndProductRepository implements EndProductRepository using GORM
type GormEndProductRepository struct {
	db *gorm.DB
}

// NewGormEndProductRepository creates a new GormEndProductRepository
func NewGormEndProductRepository(db *gorm.DB) *GormEndProductRepository {
	return &GormEndProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormEndProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.EndProduct, error) {
	var model models.EndProductModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "end_product", id.String())
	}
	return model.ToDomain(), nil
}

// FindByTemplate lists the products built from a template
func (r *GormEndProductRepository) FindByTemplate(ctx context.Context, templateID uuid.UUID) ([]production.EndProduct, error) {
	return r.find(conn(ctx, r.db).Where("bom_template_id = ?", templateID))
}

// FindAll lists every product ordered by name
func (r *GormEndProductRepository) FindAll(ctx context.Context) ([]production.EndProduct, error) {
	return r.find(conn(ctx, r.db))
}

func (r *GormEndProductRepository) find(q *gorm.DB) ([]production.EndProduct, error) {
	var rows []models.EndProductModel
	if err := q.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]production.EndProduct, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a product
func (r *GormEndProductRepository) Save(ctx context.Context, p *production.EndProduct) error {
	return translateError(conn(ctx, r.db).Save(models.EndProductModelFromDomain(p)).Error, "end_product", p.Name)
}

// Delete removes a product with its additional costs and the budget lines
// that plan it
func (r *GormEndProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Where("end_product_id = ?", id).Delete(&models.AdditionalCostModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("end_product_id = ?", id).Delete(&models.ProductionBudgetItemModel{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &models.EndProductModel{}, id)
	})
}

var _ production.EndProductRepository = (*GormEndProductRepository)(nil)

// GormAdditionalCostRepository implements AdditionalCostRepository using GORM
type GormAdditionalCostRepository struct {
	db *gorm.DB
}

// NewGormAdditionalCostRepository creates a new GormAdditionalCostRepository
func NewGormAdditionalCostRepository(db *gorm.DB) *GormAdditionalCostRepository {
	return &GormAdditionalCostRepository{db: db}
}

// FindByID finds an additional cost by its ID
func (r *GormAdditionalCostRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.AdditionalCost, error) {
	var model models.AdditionalCostModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "additional_cost", id.String())
	}
	return model.ToDomain(), nil
}

// FindByProduct lists the additional costs of a product
func (r *GormAdditionalCostRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]production.AdditionalCost, error) {
	var rows []models.AdditionalCostModel
	if err := conn(ctx, r.db).Where("end_product_id = ?", productID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]production.AdditionalCost, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates an additional cost
func (r *GormAdditionalCostRepository) Save(ctx context.Context, c *production.AdditionalCost) error {
	return translateError(conn(ctx, r.db).Save(models.AdditionalCostModelFromDomain(c)).Error, "additional_cost", c.Name)
}

// Delete removes an additional cost
func (r *GormAdditionalCostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(conn(ctx, r.db), &models.AdditionalCostModel{}, id)
}

var _ production.AdditionalCostRepository = (*GormAdditionalCostRepository)(nil)
