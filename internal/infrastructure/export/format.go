// Package csvexport renders entity lists as CSV or XLSX sheets with
// localized headers.
package csvexport

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// TimestampLayout is the layout of exported timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// Supported export locales. The first one is the default.
var supportedLocales = []language.Tag{language.Spanish, language.English}

var localeMatcher = language.NewMatcher(supportedLocales)

// ParseLocale matches a locale string ("es", "en-US", "es_CO") to the
// closest supported locale
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return supportedLocales[0]
	}
	_, idx, _ := localeMatcher.Match(tag)
	return supportedLocales[idx]
}

// Labels holds a text per language, keyed by base language ("es", "en")
type Labels map[string]string

// In returns the text for locale, falling back to Spanish and then to
// any available text
func (l Labels) In(locale language.Tag) string {
	base, _ := locale.Base()
	if s, ok := l[base.String()]; ok {
		return s
	}
	if s, ok := l["es"]; ok {
		return s
	}
	for _, s := range l {
		return s
	}
	return ""
}

var boolLabels = map[bool]Labels{
	true:  {"es": "Sí", "en": "Yes"},
	false: {"es": "No", "en": "No"},
}

// FormatValue renders a value as a cell. Nil renders as "".
func FormatValue(v any, locale language.Tag) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case bool:
		return boolLabels[val].In(locale)
	case *bool:
		if val == nil {
			return ""
		}
		return boolLabels[*val].In(locale)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.UTC().Format(TimestampLayout)
	case *time.Time:
		if val == nil || val.IsZero() {
			return ""
		}
		return val.UTC().Format(TimestampLayout)
	case decimal.Decimal:
		return val.String()
	case *decimal.Decimal:
		if val == nil {
			return ""
		}
		return val.String()
	case uuid.UUID:
		if val == uuid.Nil {
			return ""
		}
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
