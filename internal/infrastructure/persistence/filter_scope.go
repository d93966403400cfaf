package persistence

import (
	"fmt"
	"strings"

	"github.com/textileplan/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ProviderFilterFields contains columns a provider export may filter on
var ProviderFilterFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"name":         true,
	"email":        true,
	"phone_number": true,
	"address":      true,
	"notes":        true,
}

// ValidateFilterField checks a column name against a whitelist
func ValidateFilterField(field string, allowed map[string]bool) error {
	if !allowed[strings.TrimSpace(field)] {
		return shared.NewValidationError("filter", fmt.Sprintf("Unknown filter field: %s", field))
	}
	return nil
}

// FilterScope builds a GORM scope for an export filter. Every column the
// filter names must be in allowed.
func FilterScope(filter shared.Filter, allowed map[string]bool) (func(db *gorm.DB) *gorm.DB, error) {
	dateColumn := filter.DateColumn()
	if err := ValidateFilterField(dateColumn, allowed); err != nil {
		return nil, err
	}
	for _, col := range filter.NonEmpty {
		if err := ValidateFilterField(col, allowed); err != nil {
			return nil, err
		}
	}
	for col := range filter.Exact {
		if err := ValidateFilterField(col, allowed); err != nil {
			return nil, err
		}
	}

	return func(db *gorm.DB) *gorm.DB {
		if filter.DateFrom != nil {
			db = db.Where(dateColumn+" >= ?", filter.DateFrom.UTC())
		}
		if filter.DateTo != nil {
			db = db.Where(dateColumn+" <= ?", filter.DateTo.UTC())
		}
		if filter.NameContains != "" {
			db = db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(filter.NameContains))+"%")
		}
		for _, col := range filter.NonEmpty {
			db = db.Where(col + " IS NOT NULL AND " + col + " <> ''")
		}
		for col, v := range filter.Exact {
			db = db.Where(col+" = ?", v)
		}
		return db
	}, nil
}

// escapeLike escapes LIKE wildcards so user text matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
