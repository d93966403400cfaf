package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/catalog"
)

// UnitModel is the persistence model for the Unit domain entity.
type UnitModel struct {
	BaseModel
	NameEs       string `gorm:"type:varchar(50);not null"`
	NameEn       string `gorm:"type:varchar(50);not null"`
	Abbreviation string `gorm:"type:varchar(10);not null;uniqueIndex:idx_unit_abbreviation"`
}

// TableName returns the table name for GORM
func (UnitModel) TableName() string {
	return "units"
}

// ToDomain converts the persistence model to a domain Unit entity.
func (m *UnitModel) ToDomain() *catalog.Unit {
	return &catalog.Unit{
		BaseEntity:   m.BaseModel.ToDomain(),
		NameEs:       m.NameEs,
		NameEn:       m.NameEn,
		Abbreviation: m.Abbreviation,
	}
}

// UnitModelFromDomain creates a new persistence model from a domain Unit entity.
func UnitModelFromDomain(u *catalog.Unit) *UnitModel {
	m := &UnitModel{
		NameEs:       u.NameEs,
		NameEn:       u.NameEn,
		Abbreviation: u.Abbreviation,
	}
	m.FromDomainBaseEntity(u.BaseEntity)
	return m
}

// InputModel is the persistence model for the Input domain entity.
type InputModel struct {
	BaseModel
	Name        string                `gorm:"type:varchar(200);not null;index"`
	Description string                `gorm:"type:text"`
	Category    catalog.InputCategory `gorm:"column:input_type;type:varchar(20);not null"`
	UnitID      uuid.UUID             `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (InputModel) TableName() string {
	return "inputs"
}

// ToDomain converts the persistence model to a domain Input entity.
func (m *InputModel) ToDomain() *catalog.Input {
	return &catalog.Input{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		UnitID:      m.UnitID,
	}
}

// InputModelFromDomain creates a new persistence model from a domain Input entity.
func InputModelFromDomain(in *catalog.Input) *InputModel {
	m := &InputModel{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		UnitID:      in.UnitID,
	}
	m.FromDomainBaseEntity(in.BaseEntity)
	return m
}

// InputProviderModel is the persistence model for the InputProvider domain entity.
type InputProviderModel struct {
	BaseModel
	InputID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_input_provider_pair,priority:1"`
	ProviderID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_input_provider_pair,priority:2;index"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IsPreferred  bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (InputProviderModel) TableName() string {
	return "input_providers"
}

// ToDomain converts the persistence model to a domain InputProvider entity.
func (m *InputProviderModel) ToDomain() *catalog.InputProvider {
	return &catalog.InputProvider{
		BaseEntity:   m.BaseModel.ToDomain(),
		InputID:      m.InputID,
		ProviderID:   m.ProviderID,
		PricePerUnit: m.PricePerUnit,
		IsPreferred:  m.IsPreferred,
	}
}

// InputProviderModelFromDomain creates a new persistence model from a domain InputProvider entity.
func InputProviderModelFromDomain(ip *catalog.InputProvider) *InputProviderModel {
	m := &InputProviderModel{
		InputID:      ip.InputID,
		ProviderID:   ip.ProviderID,
		PricePerUnit: ip.PricePerUnit,
		IsPreferred:  ip.IsPreferred,
	}
	m.FromDomainBaseEntity(ip.BaseEntity)
	return m
}
