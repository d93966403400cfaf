package partner

import (
	"context"

	"github.com/textileplan/backend/internal/domain/shared"
)

// ProviderRepository defines the interface for provider persistence
type ProviderRepository interface {
	shared.Repository[Provider]

	// FindByName finds a provider by case-insensitive exact name
	FindByName(ctx context.Context, name string) (*Provider, error)

	// ExistsByName checks if a provider with the case-insensitive name exists
	ExistsByName(ctx context.Context, name string) (bool, error)

	// SaveBatch inserts multiple providers
	SaveBatch(ctx context.Context, providers []*Provider) error

	// FindForExport lists providers matching the filter, ordered by name
	// and then by ID
	FindForExport(ctx context.Context, filter shared.Filter) ([]Provider, error)

	// Count returns the number of providers
	Count(ctx context.Context) (int64, error)
}
