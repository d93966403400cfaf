package models

import (
	"time"

	"github.com/textileplan/backend/internal/domain/bulk"
)

// ImportHistoryModel is the persistence model for the ImportHistory domain entity.
type ImportHistoryModel struct {
	BaseModel
	EntityType      bulk.ImportEntityType `gorm:"type:varchar(30);not null;index"`
	FileName        string                `gorm:"type:varchar(255);not null"`
	SkipDuplicates  bool                  `gorm:"not null;default:true"`
	ContinueOnError bool                  `gorm:"not null;default:true"`
	ImportedCount   int                   `gorm:"not null;default:0"`
	SkippedCount    int                   `gorm:"not null;default:0"`
	ErrorCount      int                   `gorm:"not null;default:0"`
	Status          bulk.ImportStatus     `gorm:"type:varchar(20);not null;default:'processing'"`
	ErrorDetails    string                `gorm:"type:text"`
	StartedAt       time.Time             `gorm:"not null"`
	CompletedAt     *time.Time
}

// TableName returns the table name for GORM
func (ImportHistoryModel) TableName() string {
	return "import_histories"
}

// ToDomain converts the persistence model to a domain ImportHistory entity.
func (m *ImportHistoryModel) ToDomain() *bulk.ImportHistory {
	history := &bulk.ImportHistory{
		BaseEntity:      m.BaseModel.ToDomain(),
		EntityType:      m.EntityType,
		FileName:        m.FileName,
		SkipDuplicates:  m.SkipDuplicates,
		ContinueOnError: m.ContinueOnError,
		ImportedCount:   m.ImportedCount,
		SkippedCount:    m.SkippedCount,
		ErrorCount:      m.ErrorCount,
		Status:          m.Status,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
	}

	// Parse error details JSON
	if m.ErrorDetails != "" {
		_ = history.SetErrorDetailsFromJSON(m.ErrorDetails)
	}

	return history
}

// FromDomain populates the persistence model from a domain ImportHistory entity.
func (m *ImportHistoryModel) FromDomain(h *bulk.ImportHistory) {
	m.FromDomainBaseEntity(h.BaseEntity)
	m.EntityType = h.EntityType
	m.FileName = h.FileName
	m.SkipDuplicates = h.SkipDuplicates
	m.ContinueOnError = h.ContinueOnError
	m.ImportedCount = h.ImportedCount
	m.SkippedCount = h.SkippedCount
	m.ErrorCount = h.ErrorCount
	m.Status = h.Status
	m.StartedAt = h.StartedAt.UTC()
	m.CompletedAt = nil
	if h.CompletedAt != nil {
		completed := h.CompletedAt.UTC()
		m.CompletedAt = &completed
	}

	// Serialize error details to JSON
	if errorJSON, err := h.ErrorDetailsJSON(); err == nil {
		m.ErrorDetails = errorJSON
	} else {
		m.ErrorDetails = "[]"
	}
}

// ImportHistoryModelFromDomain creates a new persistence model from a domain ImportHistory entity.
func ImportHistoryModelFromDomain(h *bulk.ImportHistory) *ImportHistoryModel {
	m := &ImportHistoryModel{}
	m.FromDomain(h)
	return m
}
