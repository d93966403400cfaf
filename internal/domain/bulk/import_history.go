package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/textileplan/backend/internal/domain/shared"
)

// ImportEntityType represents the type of entity being imported
type ImportEntityType string

const (
	ImportEntityProviders ImportEntityType = "providers"
)

// IsValid checks if the entity type is valid
func (e ImportEntityType) IsValid() bool {
	return e == ImportEntityProviders
}

// ImportStatus represents the status of an import run
type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// IsTerminal returns true if this is a terminal state
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

// MaxStoredErrors caps the error details kept on a history record
const MaxStoredErrors = 100

// ImportErrorDetail is one row-level error of an import run
type ImportErrorDetail struct {
	Line    int    `json:"line"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportHistory records the outcome of one non-dry-run import
type ImportHistory struct {
	shared.BaseEntity
	EntityType      ImportEntityType    `json:"entity_type"`
	FileName        string              `json:"file_name"`
	SkipDuplicates  bool                `json:"skip_duplicates"`
	ContinueOnError bool                `json:"continue_on_error"`
	ImportedCount   int                 `json:"imported_count"`
	SkippedCount    int                 `json:"skipped_count"`
	ErrorCount      int                 `json:"error_count"`
	Status          ImportStatus        `json:"status"`
	ErrorDetails    []ImportErrorDetail `json:"error_details,omitempty"`
	StartedAt       time.Time           `json:"started_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
}

// NewImportHistory starts a history record for an import run
func NewImportHistory(entityType ImportEntityType, fileName string, skipDuplicates, continueOnError bool) (*ImportHistory, error) {
	if !entityType.IsValid() {
		return nil, shared.NewValidationError("entity_type", fmt.Sprintf("Invalid entity type: %s", entityType))
	}
	if fileName == "" {
		return nil, shared.NewValidationError("file_name", "File name cannot be empty")
	}

	base := shared.NewBaseEntity()
	return &ImportHistory{
		BaseEntity:      base,
		EntityType:      entityType,
		FileName:        fileName,
		SkipDuplicates:  skipDuplicates,
		ContinueOnError: continueOnError,
		Status:          ImportStatusProcessing,
		ErrorDetails:    make([]ImportErrorDetail, 0),
		StartedAt:       base.CreatedAt,
	}, nil
}

// Complete records the counters of a finished run. A run that imported
// nothing and reported errors is marked failed.
func (h *ImportHistory) Complete(imported, skipped, errorCount int, details []ImportErrorDetail) error {
	if h.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", h.Status))
	}

	status := ImportStatusCompleted
	if errorCount > 0 && imported == 0 {
		status = ImportStatusFailed
	}
	if len(details) > MaxStoredErrors {
		details = details[:MaxStoredErrors]
	}

	h.Status = status
	h.ImportedCount = imported
	h.SkippedCount = skipped
	h.ErrorCount = errorCount
	h.ErrorDetails = details
	now := shared.Now()
	h.CompletedAt = &now
	h.UpdatedAt = now
	return nil
}

// Fail marks the run as aborted
func (h *ImportHistory) Fail(details []ImportErrorDetail) error {
	if h.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", h.Status))
	}
	if len(details) > MaxStoredErrors {
		details = details[:MaxStoredErrors]
	}

	h.Status = ImportStatusFailed
	h.ErrorDetails = details
	h.ErrorCount = len(details)
	now := shared.Now()
	h.CompletedAt = &now
	h.UpdatedAt = now
	return nil
}

// ErrorDetailsJSON returns the error details as a JSON string
func (h *ImportHistory) ErrorDetailsJSON() (string, error) {
	if len(h.ErrorDetails) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(h.ErrorDetails)
	if err != nil {
		return "", fmt.Errorf("failed to marshal error details: %w", err)
	}
	return string(data), nil
}

// SetErrorDetailsFromJSON parses error details from a JSON string
func (h *ImportHistory) SetErrorDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		h.ErrorDetails = make([]ImportErrorDetail, 0)
		return nil
	}
	var details []ImportErrorDetail
	if err := json.Unmarshal([]byte(jsonStr), &details); err != nil {
		return fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	h.ErrorDetails = details
	return nil
}

// Duration returns how long the run took
func (h *ImportHistory) Duration() time.Duration {
	if h.CompletedAt == nil {
		return time.Since(h.StartedAt)
	}
	return h.CompletedAt.Sub(h.StartedAt)
}
