package models

import (
	"github.com/textileplan/backend/internal/domain/partner"
)

// ProviderModel is the persistence model for the Provider domain entity.
type ProviderModel struct {
	BaseModel
	Name        string `gorm:"type:varchar(200);not null;index"`
	Email       string `gorm:"type:varchar(254);index"`
	PhoneNumber string `gorm:"type:varchar(20)"`
	Address     string `gorm:"type:varchar(500)"`
	Notes       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ProviderModel) TableName() string {
	return "providers"
}

// ToDomain converts the persistence model to a domain Provider entity.
func (m *ProviderModel) ToDomain() *partner.Provider {
	return &partner.Provider{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Email:       m.Email,
		PhoneNumber: m.PhoneNumber,
		Address:     m.Address,
		Notes:       m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Provider entity.
func (m *ProviderModel) FromDomain(p *partner.Provider) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Name = p.Name
	m.Email = p.Email
	m.PhoneNumber = p.PhoneNumber
	m.Address = p.Address
	m.Notes = p.Notes
}

// ProviderModelFromDomain creates a new persistence model from a domain Provider entity.
func ProviderModelFromDomain(p *partner.Provider) *ProviderModel {
	m := &ProviderModel{}
	m.FromDomain(p)
	return m
}
