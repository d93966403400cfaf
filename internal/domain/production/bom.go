package production

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/shared"
)

// Storage ranges of BOM values
var (
	QuantityField = shared.DecimalField{Name: "quantity", MaxDigits: 10, Places: 3}
	LineCostField = shared.DecimalField{Name: "line_cost", MaxDigits: 12, Places: 2}
	BOMTotalField = shared.DecimalField{Name: "total_cost", MaxDigits: 12, Places: 2}
)

// MinQuantity is the smallest accepted BOM line quantity
var MinQuantity = decimal.RequireFromString("0.001")

// BOMTemplate is a named, reusable bill of materials.
// TotalCost equals the sum of its items' line costs after RecomputeBOMTotal
// and may be stale otherwise.
type BOMTemplate struct {
	shared.BaseEntity
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// NewBOMTemplate creates an empty BOM template
func NewBOMTemplate(name, description string) (*BOMTemplate, error) {
	t := &BOMTemplate{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		TotalCost:   decimal.Zero,
	}
	if err := shared.ValidateStruct(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ApplyTotal sets the total from the given line costs and returns it
func (t *BOMTemplate) ApplyTotal(items []BOMItem) (decimal.Decimal, error) {
	total, err := BOMTotalField.Quantize(BOMTotal(items))
	if err != nil {
		return decimal.Zero, err
	}
	t.TotalCost = total
	t.Touch()
	return total, nil
}

// BOMItem is one line of a BOM template. Its InputProvider must belong to
// its Input, and a template holds at most one line per input.
type BOMItem struct {
	shared.BaseEntity
	TemplateID      uuid.UUID       `json:"bom_template" validate:"required"`
	InputID         uuid.UUID       `json:"input" validate:"required"`
	InputProviderID uuid.UUID       `json:"input_provider" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	LineCost        decimal.Decimal `json:"line_cost"`
}

// NewBOMItem creates a BOM line. The line cost stays zero until it is
// recomputed.
func NewBOMItem(templateID, inputID, inputProviderID uuid.UUID, quantity decimal.Decimal) (*BOMItem, error) {
	item := &BOMItem{
		BaseEntity:      shared.NewBaseEntity(),
		TemplateID:      templateID,
		InputID:         inputID,
		InputProviderID: inputProviderID,
		LineCost:        decimal.Zero,
	}
	if err := shared.ValidateStruct(item); err != nil {
		return nil, err
	}
	if err := item.SetQuantity(quantity); err != nil {
		return nil, err
	}
	return item, nil
}

// SetQuantity validates and stores the line quantity
func (i *BOMItem) SetQuantity(quantity decimal.Decimal) error {
	if quantity.LessThan(MinQuantity) {
		return shared.NewValidationError("quantity", "Must be greater than or equal to 0.001")
	}
	q, err := QuantityField.Quantize(quantity)
	if err != nil {
		return err
	}
	i.Quantity = q
	i.Touch()
	return nil
}

// SetSource changes the input of the line and the price fact it is costed with
func (i *BOMItem) SetSource(inputID, inputProviderID uuid.UUID) error {
	if inputID == uuid.Nil {
		return shared.NewValidationError("input", "This field is required")
	}
	if inputProviderID == uuid.Nil {
		return shared.NewValidationError("input_provider", "This field is required")
	}
	i.InputID = inputID
	i.InputProviderID = inputProviderID
	i.Touch()
	return nil
}

// ApplyLineCost sets line_cost = price × quantity and returns it
func (i *BOMItem) ApplyLineCost(pricePerUnit decimal.Decimal) (decimal.Decimal, error) {
	cost, err := LineCostField.Quantize(LineCost(pricePerUnit, i.Quantity))
	if err != nil {
		return decimal.Zero, err
	}
	i.LineCost = cost
	i.Touch()
	return cost, nil
}
