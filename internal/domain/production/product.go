package production

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/shared"
)

// Storage ranges of product values
var (
	BOMCostField        = shared.DecimalField{Name: "bom_cost", MaxDigits: 12, Places: 2}
	ProductTotalField   = shared.DecimalField{Name: "total_cost", MaxDigits: 12, Places: 2}
	AdditionalCostField = shared.DecimalField{Name: "value", MaxDigits: 12, Places: 2}
)

// EndProduct is a finished good built from exactly one BOM template.
// BOMCost mirrors the template's stored total and TotalCost adds the
// product's additional costs on top.
type EndProduct struct {
	shared.BaseEntity
	Name             string          `json:"name" validate:"required,max=200"`
	Description      string          `json:"description"`
	BOMTemplateID    uuid.UUID       `json:"bom_template" validate:"required"`
	ProducedQuantity int             `json:"produced_quantity" validate:"gte=0"`
	BOMCost          decimal.Decimal `json:"bom_cost"`
	TotalCost        decimal.Decimal `json:"total_cost"`
}

// NewEndProduct creates a product on top of a BOM template
func NewEndProduct(name, description string, bomTemplateID uuid.UUID) (*EndProduct, error) {
	p := &EndProduct{
		BaseEntity:    shared.NewBaseEntity(),
		Name:          strings.TrimSpace(name),
		Description:   strings.TrimSpace(description),
		BOMTemplateID: bomTemplateID,
		BOMCost:       decimal.Zero,
		TotalCost:     decimal.Zero,
	}
	if err := shared.ValidateStruct(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyCost sets bom_cost from the template total and total_cost as
// bom_cost plus the sum of additional costs. It returns the new total.
func (p *EndProduct) ApplyCost(templateTotal decimal.Decimal, additional []AdditionalCost) (decimal.Decimal, error) {
	bomCost, err := BOMCostField.Quantize(templateTotal)
	if err != nil {
		return decimal.Zero, err
	}
	total, err := ProductTotalField.Quantize(ProductTotal(bomCost, additional))
	if err != nil {
		return decimal.Zero, err
	}
	p.BOMCost = bomCost
	p.TotalCost = total
	p.Touch()
	return total, nil
}

// AdditionalCost is a named flat charge added to a product's cost
type AdditionalCost struct {
	shared.BaseEntity
	ProductID uuid.UUID       `json:"end_product" validate:"required"`
	Name      string          `json:"name" validate:"required,max=200"`
	Value     decimal.Decimal `json:"value"`
}

// NewAdditionalCost creates a flat cost line for a product
func NewAdditionalCost(productID uuid.UUID, name string, value decimal.Decimal) (*AdditionalCost, error) {
	c := &AdditionalCost{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		Name:       strings.TrimSpace(name),
	}
	if err := shared.ValidateStruct(c); err != nil {
		return nil, err
	}
	if err := c.SetValue(value); err != nil {
		return nil, err
	}
	return c, nil
}

// SetValue validates and stores the cost amount
func (c *AdditionalCost) SetValue(value decimal.Decimal) error {
	if !value.IsPositive() {
		return shared.NewValidationError("value", "Must be greater than 0")
	}
	v, err := AdditionalCostField.Quantize(value)
	if err != nil {
		return err
	}
	c.Value = v
	c.Touch()
	return nil
}

// Update changes the cost's name and amount
func (c *AdditionalCost) Update(name string, value decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("name", "This field is required")
	}
	if utf8.RuneCountInString(name) > 200 {
		return shared.NewValidationError("name", "Must be at most 200 characters")
	}
	if err := c.SetValue(value); err != nil {
		return err
	}
	c.Name = name
	return nil
}
