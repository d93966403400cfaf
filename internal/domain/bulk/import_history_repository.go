package bulk

import (
	"context"

	"github.com/google/uuid"
)

// ImportHistoryRepository defines the interface for import history persistence
type ImportHistoryRepository interface {
	// FindByID finds an import history by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ImportHistory, error)

	// FindRecent returns the latest runs for an entity type, newest first
	FindRecent(ctx context.Context, entityType ImportEntityType, limit int) ([]*ImportHistory, error)

	// Save saves an import history (create or update)
	Save(ctx context.Context, history *ImportHistory) error
}
