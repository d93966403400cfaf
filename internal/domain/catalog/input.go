package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/shared"
)

// InputCategory tags an input as a raw material or a service
type InputCategory string

const (
	InputCategoryConfection InputCategory = "confection"
	InputCategorySupply     InputCategory = "supply"
	InputCategoryFabric     InputCategory = "fabric"
	InputCategoryProcess    InputCategory = "process"
)

// IsValid checks if the category is known
func (c InputCategory) IsValid() bool {
	switch c {
	case InputCategoryConfection, InputCategorySupply, InputCategoryFabric, InputCategoryProcess:
		return true
	}
	return false
}

// Input is a raw material or a service that BOM lines consume.
// An input referenced by a BOM line cannot be deleted.
type Input struct {
	shared.BaseEntity
	Name        string        `json:"name" validate:"required,max=200"`
	Description string        `json:"description"`
	Category    InputCategory `json:"input_type" validate:"required,oneof=confection supply fabric process"`
	UnitID      uuid.UUID     `json:"unit" validate:"required"`
}

// NewInput creates a new input measured in the given unit
func NewInput(name, description string, category InputCategory, unitID uuid.UUID) (*Input, error) {
	input := &Input{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Category:    category,
		UnitID:      unitID,
	}
	if err := shared.ValidateStruct(input); err != nil {
		return nil, err
	}
	return input, nil
}

// PricePerUnitField is the storage range of InputProvider.PricePerUnit
var PricePerUnitField = shared.DecimalField{Name: "price_per_unit", MaxDigits: 12, Places: 2}

// MinPricePerUnit is the smallest accepted price
var MinPricePerUnit = decimal.RequireFromString("0.01")

// InputProvider is the price a provider charges for an input.
// It is unique per (input, provider) pair and is the leaf price fact of
// every cost roll-up.
type InputProvider struct {
	shared.BaseEntity
	InputID      uuid.UUID       `json:"input" validate:"required"`
	ProviderID   uuid.UUID       `json:"provider" validate:"required"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	IsPreferred  bool            `json:"is_preferred"`
}

// NewInputProvider creates a new price fact
func NewInputProvider(inputID, providerID uuid.UUID, price decimal.Decimal, preferred bool) (*InputProvider, error) {
	ip := &InputProvider{
		BaseEntity:  shared.NewBaseEntity(),
		InputID:     inputID,
		ProviderID:  providerID,
		IsPreferred: preferred,
	}
	if err := shared.ValidateStruct(ip); err != nil {
		return nil, err
	}
	if err := ip.SetPrice(price); err != nil {
		return nil, err
	}
	return ip, nil
}

// SetPrice validates and stores a new price per unit. Dependent BOM lines
// are stale until they are recomputed.
func (ip *InputProvider) SetPrice(price decimal.Decimal) error {
	if price.LessThan(MinPricePerUnit) {
		return shared.NewValidationError("price_per_unit", "Must be greater than or equal to 0.01")
	}
	quantized, err := PricePerUnitField.Quantize(price)
	if err != nil {
		return err
	}
	ip.PricePerUnit = quantized
	ip.Touch()
	return nil
}
