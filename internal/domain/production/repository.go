package production

import (
	"context"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/shared"
)

// BOMTemplateRepository defines the interface for BOM template persistence.
// Delete cascades to the template's items and fails with a
// ReferentialIntegrityError while a product uses the template.
type BOMTemplateRepository interface {
	shared.Repository[BOMTemplate]

	// FindAll lists every template ordered by name
	FindAll(ctx context.Context) ([]BOMTemplate, error)
}

// BOMItemRepository defines the interface for BOM line persistence
type BOMItemRepository interface {
	shared.Repository[BOMItem]

	// FindByTemplate lists the lines of a template
	FindByTemplate(ctx context.Context, templateID uuid.UUID) ([]BOMItem, error)

	// FindByInputProvider lists the lines priced by a price fact
	FindByInputProvider(ctx context.Context, inputProviderID uuid.UUID) ([]BOMItem, error)

	// FindAll lists every line
	FindAll(ctx context.Context) ([]BOMItem, error)
}

// EndProductRepository defines the interface for product persistence.
// Delete cascades to additional costs.
type EndProductRepository interface {
	shared.Repository[EndProduct]

	// FindByTemplate lists the products built from a template
	FindByTemplate(ctx context.Context, templateID uuid.UUID) ([]EndProduct, error)

	// FindAll lists every product ordered by name
	FindAll(ctx context.Context) ([]EndProduct, error)
}

// AdditionalCostRepository defines the interface for additional cost persistence
type AdditionalCostRepository interface {
	shared.Repository[AdditionalCost]

	// FindByProduct lists the additional costs of a product
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]AdditionalCost, error)
}

// BudgetRepository defines the interface for production budget persistence.
// Delete cascades to the budget's items.
type BudgetRepository interface {
	shared.Repository[ProductionBudget]

	// FindAll lists budgets ordered by name, optionally restricted to statuses
	FindAll(ctx context.Context, statuses ...BudgetStatus) ([]ProductionBudget, error)
}

// BudgetItemRepository defines the interface for budget line persistence
type BudgetItemRepository interface {
	shared.Repository[ProductionBudgetItem]

	// FindByBudget lists the lines of a budget
	FindByBudget(ctx context.Context, budgetID uuid.UUID) ([]ProductionBudgetItem, error)

	// FindByProduct lists the budget lines that plan a product
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]ProductionBudgetItem, error)
}
