package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt.UTC()
	m.UpdatedAt = e.UpdatedAt.UTC()
}

// All returns every model in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&UnitModel{},
		&ProviderModel{},
		&InputModel{},
		&InputProviderModel{},
		&BOMTemplateModel{},
		&BOMItemModel{},
		&EndProductModel{},
		&AdditionalCostModel{},
		&ProductionBudgetModel{},
		&ProductionBudgetItemModel{},
		&ImportHistoryModel{},
	}
}
