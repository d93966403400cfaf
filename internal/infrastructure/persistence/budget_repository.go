package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/production"
	"github.com/textileplan/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBudgetRepository implements BudgetRepository using GORM
type GormBudgetRepository struct {
	db *gorm.DB
}

// NewGormBudgetRepository creates a new GormBudgetRepository
func NewGormBudgetRepository(db *gorm.DB) *GormBudgetRepository {
	return &GormBudgetRepository{db: db}
}

// FindByID finds a budget by its ID
func (r *GormBudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionBudget, error) {
	var model models.ProductionBudgetModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "production_budget", id.String())
	}
	return model.ToDomain(), nil
}

// FindAll lists budgets ordered by name, optionally restricted to statuses
func (r *GormBudgetRepository) FindAll(ctx context.Context, statuses ...production.BudgetStatus) ([]production.ProductionBudget, error) {
	q := conn(ctx, r.db)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var rows []models.ProductionBudgetModel
	if err := q.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]production.ProductionBudget, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a budget
func (r *GormBudgetRepository) Save(ctx context.Context, b *production.ProductionBudget) error {
	return translateError(conn(ctx, r.db).Save(models.ProductionBudgetModelFromDomain(b)).Error, "production_budget", b.Name)
}

// Delete removes a budget and its lines
func (r *GormBudgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", id).Delete(&models.ProductionBudgetItemModel{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &models.ProductionBudgetModel{}, id)
	})
}

var _ production.BudgetRepository = (*GormBudgetRepository)(nil)

// GormBudgetItemRepository implements BudgetItemRepository using GORM
type GormBudgetItemRepository struct {
	db *gorm.DB
}

// NewGormBudgetItemRepository creates a new GormBudgetItemRepository
func NewGormBudgetItemRepository(db *gorm.DB) *GormBudgetItemRepository {
	return &GormBudgetItemRepository{db: db}
}

// FindByID finds a budget line by its ID
func (r *GormBudgetItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionBudgetItem, error) {
	var model models.ProductionBudgetItemModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "production_budget_item", id.String())
	}
	return model.ToDomain(), nil
}

// FindByBudget lists the lines of a budget
func (r *GormBudgetItemRepository) FindByBudget(ctx context.Context, budgetID uuid.UUID) ([]production.ProductionBudgetItem, error) {
	return r.find(conn(ctx, r.db).Where("budget_id = ?", budgetID))
}

// FindByProduct lists the budget lines that plan a product
func (r *GormBudgetItemRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]production.ProductionBudgetItem, error) {
	return r.find(conn(ctx, r.db).Where("end_product_id = ?", productID))
}

func (r *GormBudgetItemRepository) find(q *gorm.DB) ([]production.ProductionBudgetItem, error) {
	var rows []models.ProductionBudgetItemModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]production.ProductionBudgetItem, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a budget line. A budget plans each product once.
func (r *GormBudgetItemRepository) Save(ctx context.Context, item *production.ProductionBudgetItem) error {
	err := conn(ctx, r.db).Save(models.ProductionBudgetItemModelFromDomain(item)).Error
	return translateError(err, "production_budget_item", "product "+item.ProductID.String()+" in budget "+item.BudgetID.String())
}

// Delete removes a budget line
func (r *GormBudgetItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(conn(ctx, r.db), &models.ProductionBudgetItemModel{}, id)
}

var _ production.BudgetItemRepository = (*GormBudgetItemRepository)(nil)
