package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/production"
)

// BOMTemplateModel is the persistence model for the BOMTemplate domain entity.
type BOMTemplateModel struct {
	BaseModel
	Name        string          `gorm:"type:varchar(200);not null;index"`
	Description string          `gorm:"type:text"`
	TotalCost   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (BOMTemplateModel) TableName() string {
	return "bom_templates"
}

// ToDomain converts the persistence model to a domain BOMTemplate entity.
func (m *BOMTemplateModel) ToDomain() *production.BOMTemplate {
	return &production.BOMTemplate{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Description: m.Description,
		TotalCost:   m.TotalCost,
	}
}

// BOMTemplateModelFromDomain creates a new persistence model from a domain BOMTemplate entity.
func BOMTemplateModelFromDomain(t *production.BOMTemplate) *BOMTemplateModel {
	m := &BOMTemplateModel{
		Name:        t.Name,
		Description: t.Description,
		TotalCost:   t.TotalCost,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// BOMItemModel is the persistence model for the BOMItem domain entity.
type BOMItemModel struct {
	BaseModel
	TemplateID      uuid.UUID       `gorm:"column:bom_template_id;type:uuid;not null;uniqueIndex:idx_bom_item_template_input,priority:1"`
	InputID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_bom_item_template_input,priority:2;index"`
	InputProviderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity        decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	LineCost        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (BOMItemModel) TableName() string {
	return "bom_items"
}

// ToDomain converts the persistence model to a domain BOMItem entity.
func (m *BOMItemModel) ToDomain() *production.BOMItem {
	return &production.BOMItem{
		BaseEntity:      m.BaseModel.ToDomain(),
		TemplateID:      m.TemplateID,
		InputID:         m.InputID,
		InputProviderID: m.InputProviderID,
		Quantity:        m.Quantity,
		LineCost:        m.LineCost,
	}
}

// BOMItemModelFromDomain creates a new persistence model from a domain BOMItem entity.
func BOMItemModelFromDomain(i *production.BOMItem) *BOMItemModel {
	m := &BOMItemModel{
		TemplateID:      i.TemplateID,
		InputID:         i.InputID,
		InputProviderID: i.InputProviderID,
		Quantity:        i.Quantity,
		LineCost:        i.LineCost,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}

// EndProductModel is the persistence model for the EndProduct domain entity.
type EndProductModel struct {
	BaseModel
	Name             string          `gorm:"type:varchar(200);not null;index"`
	Description      string          `gorm:"type:text"`
	BOMTemplateID    uuid.UUID       `gorm:"column:bom_template_id;type:uuid;not null;index"`
	ProducedQuantity int             `gorm:"not null;default:0"`
	BOMCost          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCost        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (EndProductModel) TableName() string {
	return "end_products"
}

// ToDomain converts the persistence model to a domain EndProduct entity.
func (m *EndProductModel) ToDomain() *production.EndProduct {
	return &production.EndProduct{
		BaseEntity:       m.BaseModel.ToDomain(),
		Name:             m.Name,
		Description:      m.Description,
		BOMTemplateID:    m.BOMTemplateID,
		ProducedQuantity: m.ProducedQuantity,
		BOMCost:          m.BOMCost,
		TotalCost:        m.TotalCost,
	}
}

// EndProductModelFromDomain creates a new persistence model from a domain EndProduct entity.
func EndProductModelFromDomain(p *production.EndProduct) *EndProductModel {
	m := &EndProductModel{
		Name:             p.Name,
		Description:      p.Description,
		BOMTemplateID:    p.BOMTemplateID,
		ProducedQuantity: p.ProducedQuantity,
		BOMCost:          p.BOMCost,
		TotalCost:        p.TotalCost,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// AdditionalCostModel is the persistence model for the AdditionalCost domain entity.
type AdditionalCostModel struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"column:end_product_id;type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Value     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (AdditionalCostModel) TableName() string {
	return "additional_costs"
}

// ToDomain converts the persistence model to a domain AdditionalCost entity.
func (m *AdditionalCostModel) ToDomain() *production.AdditionalCost {
	return &production.AdditionalCost{
		BaseEntity: m.BaseModel.ToDomain(),
		ProductID:  m.ProductID,
		Name:       m.Name,
		Value:      m.Value,
	}
}

// AdditionalCostModelFromDomain creates a new persistence model from a domain AdditionalCost entity.
func AdditionalCostModelFromDomain(c *production.AdditionalCost) *AdditionalCostModel {
	m := &AdditionalCostModel{
		ProductID: c.ProductID,
		Name:      c.Name,
		Value:     c.Value,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// ProductionBudgetModel is the persistence model for the ProductionBudget domain entity.
type ProductionBudgetModel struct {
	BaseModel
	Name        string                  `gorm:"type:varchar(200);not null;index"`
	Description string                  `gorm:"type:text"`
	Status      production.BudgetStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	TotalBudget decimal.Decimal         `gorm:"type:decimal(15,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductionBudgetModel) TableName() string {
	return "production_budgets"
}

// ToDomain converts the persistence model to a domain ProductionBudget entity.
func (m *ProductionBudgetModel) ToDomain() *production.ProductionBudget {
	return &production.ProductionBudget{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Description: m.Description,
		Status:      m.Status,
		TotalBudget: m.TotalBudget,
	}
}

// ProductionBudgetModelFromDomain creates a new persistence model from a domain ProductionBudget entity.
func ProductionBudgetModelFromDomain(b *production.ProductionBudget) *ProductionBudgetModel {
	m := &ProductionBudgetModel{
		Name:        b.Name,
		Description: b.Description,
		Status:      b.Status,
		TotalBudget: b.TotalBudget,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// ProductionBudgetItemModel is the persistence model for the ProductionBudgetItem domain entity.
type ProductionBudgetItemModel struct {
	BaseModel
	BudgetID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budget_item_budget_product,priority:1"`
	ProductID       uuid.UUID       `gorm:"column:end_product_id;type:uuid;not null;uniqueIndex:idx_budget_item_budget_product,priority:2;index"`
	PlannedQuantity int             `gorm:"not null"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductionBudgetItemModel) TableName() string {
	return "production_budget_items"
}

// ToDomain converts the persistence model to a domain ProductionBudgetItem entity.
func (m *ProductionBudgetItemModel) ToDomain() *production.ProductionBudgetItem {
	return &production.ProductionBudgetItem{
		BaseEntity:      m.BaseModel.ToDomain(),
		BudgetID:        m.BudgetID,
		ProductID:       m.ProductID,
		PlannedQuantity: m.PlannedQuantity,
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
	}
}

// ProductionBudgetItemModelFromDomain creates a new persistence model from a domain ProductionBudgetItem entity.
func ProductionBudgetItemModelFromDomain(i *production.ProductionBudgetItem) *ProductionBudgetItemModel {
	m := &ProductionBudgetItemModel{
		BudgetID:        i.BudgetID,
		ProductID:       i.ProductID,
		PlannedQuantity: i.PlannedQuantity,
		UnitCost:        i.UnitCost,
		TotalCost:       i.TotalCost,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}
