package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the base interface for all repositories
type Repository[T any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TxManager runs a function inside a transaction carried by the context.
// Repositories called with the derived context join the transaction.
// Nested calls run as savepoints of the outer transaction.
type TxManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Filter represents export query filter options
type Filter struct {
	// DateField is the timestamp column the date range applies to.
	// Defaults to created_at.
	DateField string
	DateFrom  *time.Time
	DateTo    *time.Time
	// NameContains is a case-insensitive substring match on the name column
	NameContains string
	// NonEmpty lists columns that must be neither NULL nor empty
	NonEmpty []string
	// Exact maps column names to values that must match exactly
	Exact map[string]any
}

// DefaultFilter returns an empty filter over created_at
func DefaultFilter() Filter {
	return Filter{
		DateField: "created_at",
		Exact:     make(map[string]any),
	}
}

// DateColumn returns the effective date column
func (f Filter) DateColumn() string {
	if f.DateField == "" {
		return "created_at"
	}
	return f.DateField
}
