package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/shared"
)

// UnitRepository defines the interface for unit persistence
type UnitRepository interface {
	shared.Repository[Unit]

	// FindByAbbreviation finds a unit by its unique abbreviation
	FindByAbbreviation(ctx context.Context, abbreviation string) (*Unit, error)
}

// InputRepository defines the interface for input persistence.
// Delete fails with a ReferentialIntegrityError while BOM lines reference
// the input.
type InputRepository interface {
	shared.Repository[Input]
}

// InputProviderRepository defines the interface for price fact persistence
type InputProviderRepository interface {
	shared.Repository[InputProvider]

	// FindByInputAndProvider finds the price fact for an (input, provider) pair
	FindByInputAndProvider(ctx context.Context, inputID, providerID uuid.UUID) (*InputProvider, error)

	// FindByInput lists the price facts of an input
	FindByInput(ctx context.Context, inputID uuid.UUID) ([]InputProvider, error)
}
