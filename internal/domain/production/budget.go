package production

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/shared"
)

// Storage ranges of budget values
var (
	UnitCostField        = shared.DecimalField{Name: "unit_cost", MaxDigits: 12, Places: 2}
	BudgetItemTotalField = shared.DecimalField{Name: "total_cost", MaxDigits: 15, Places: 2}
	BudgetTotalField     = shared.DecimalField{Name: "total_budget", MaxDigits: 15, Places: 2}
)

// BudgetStatus is the lifecycle stage of a production budget.
// Transitions are expected to move forward but are not enforced.
type BudgetStatus string

const (
	BudgetStatusDraft      BudgetStatus = "draft"
	BudgetStatusApproved   BudgetStatus = "approved"
	BudgetStatusInProgress BudgetStatus = "in_progress"
	BudgetStatusCompleted  BudgetStatus = "completed"
)

// IsValid checks if the status is known
func (s BudgetStatus) IsValid() bool {
	switch s {
	case BudgetStatusDraft, BudgetStatusApproved, BudgetStatusInProgress, BudgetStatusCompleted:
		return true
	}
	return false
}

// ParseBudgetStatus parses a status name
func ParseBudgetStatus(s string) (BudgetStatus, error) {
	status := BudgetStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewValidationError("status", fmt.Sprintf("Unknown budget status: %s", s))
	}
	return status, nil
}

// ProductionBudget groups planned production of several products
type ProductionBudget struct {
	shared.BaseEntity
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Status      BudgetStatus    `json:"status" validate:"required,oneof=draft approved in_progress completed"`
	TotalBudget decimal.Decimal `json:"total_budget"`
}

// NewProductionBudget creates a draft budget
func NewProductionBudget(name, description string) (*ProductionBudget, error) {
	b := &ProductionBudget{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Status:      BudgetStatusDraft,
		TotalBudget: decimal.Zero,
	}
	if err := shared.ValidateStruct(b); err != nil {
		return nil, err
	}
	return b, nil
}

// SetStatus changes the budget status
func (b *ProductionBudget) SetStatus(status BudgetStatus) error {
	if !status.IsValid() {
		return shared.NewValidationError("status", fmt.Sprintf("Unknown budget status: %s", status))
	}
	b.Status = status
	b.Touch()
	return nil
}

// ApplyTotal sets the budget total from the given item totals
func (b *ProductionBudget) ApplyTotal(items []ProductionBudgetItem) (decimal.Decimal, error) {
	total, err := BudgetTotalField.Quantize(BudgetTotal(items))
	if err != nil {
		return decimal.Zero, err
	}
	b.TotalBudget = total
	b.Touch()
	return total, nil
}

// ProductionBudgetItem plans a quantity of one product inside a budget.
// A budget holds at most one item per product.
type ProductionBudgetItem struct {
	shared.BaseEntity
	BudgetID        uuid.UUID       `json:"budget" validate:"required"`
	ProductID       uuid.UUID       `json:"end_product" validate:"required"`
	PlannedQuantity int             `json:"planned_quantity" validate:"gte=1"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
}

// NewProductionBudgetItem creates a budget line
func NewProductionBudgetItem(budgetID, productID uuid.UUID, plannedQuantity int) (*ProductionBudgetItem, error) {
	item := &ProductionBudgetItem{
		BaseEntity:      shared.NewBaseEntity(),
		BudgetID:        budgetID,
		ProductID:       productID,
		PlannedQuantity: plannedQuantity,
		UnitCost:        decimal.Zero,
		TotalCost:       decimal.Zero,
	}
	if err := shared.ValidateStruct(item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetPlannedQuantity validates and stores the planned quantity
func (i *ProductionBudgetItem) SetPlannedQuantity(quantity int) error {
	if quantity < 1 {
		return shared.NewValidationError("planned_quantity", "Must be greater than or equal to 1")
	}
	i.PlannedQuantity = quantity
	i.Touch()
	return nil
}

// ApplyCost sets unit_cost from the product total and
// total_cost = unit_cost × planned_quantity. It returns the new total.
func (i *ProductionBudgetItem) ApplyCost(productTotal decimal.Decimal) (decimal.Decimal, error) {
	unitCost, err := UnitCostField.Quantize(productTotal)
	if err != nil {
		return decimal.Zero, err
	}
	total, err := BudgetItemTotalField.Quantize(BudgetItemTotal(unitCost, i.PlannedQuantity))
	if err != nil {
		return decimal.Zero, err
	}
	i.UnitCost = unitCost
	i.TotalCost = total
	i.Touch()
	return total, nil
}
