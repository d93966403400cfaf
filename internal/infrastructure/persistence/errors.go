package persistence

import (
	"errors"

	"github.com/textileplan/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps driver errors onto the domain taxonomy. entity and
// key describe the row for duplicate reports.
func translateError(err error, entity, key string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewDuplicateError(entity, key)
	}
	return err
}
