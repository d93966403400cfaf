package csvimport

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Record is one row keyed by canonical field name. Absent fields have no key.
type Record map[string]string

// Get returns the value of a canonical field, or "" when absent
func (r Record) Get(field string) string {
	return r[field]
}

// FieldMapper translates source columns into canonical fields
type FieldMapper interface {
	MapRow(row *Row) Record
}

// AliasMapper maps column headers onto canonical fields through a fixed
// alias table. Headers are compared after folding case and accents.
type AliasMapper struct {
	fields  []string
	aliases map[string]string
}

// NewAliasMapper builds a mapper from canonical field to accepted aliases.
// Every canonical name is also accepted as its own alias.
func NewAliasMapper(fields []string, table map[string][]string) *AliasMapper {
	m := &AliasMapper{
		fields:  fields,
		aliases: make(map[string]string),
	}
	for _, field := range fields {
		m.aliases[NormalizeHeader(field)] = field
		for _, alias := range table[field] {
			m.aliases[NormalizeHeader(alias)] = field
		}
	}
	return m
}

// Fields returns the canonical fields in declaration order
func (m *AliasMapper) Fields() []string {
	return m.fields
}

// Canonical returns the canonical field a header maps to
func (m *AliasMapper) Canonical(header string) (string, bool) {
	field, ok := m.aliases[NormalizeHeader(header)]
	return field, ok
}

// Unmapped returns the headers that map to no field
func (m *AliasMapper) Unmapped(headers []string) []string {
	var out []string
	for _, h := range headers {
		if h == "" {
			continue
		}
		if _, ok := m.Canonical(h); !ok {
			out = append(out, h)
		}
	}
	return out
}

// MapRow keeps the non-empty values of recognized columns. When two
// columns map to the same field the first non-empty one wins.
func (m *AliasMapper) MapRow(row *Row) Record {
	rec := make(Record)
	for i, header := range row.Columns {
		if i >= len(row.Values) {
			break
		}
		value := row.Values[i]
		if value == "" {
			continue
		}
		field, ok := m.Canonical(header)
		if !ok {
			continue
		}
		if _, taken := rec[field]; taken {
			continue
		}
		rec[field] = value
	}
	return rec
}

var accentFolder = runes.Remove(runes.In(unicode.Mn))

// NormalizeHeader lowercases a header, strips accents and required-field
// markers, and joins words with underscores: "Teléfono *" becomes "telefono".
func NormalizeHeader(header string) string {
	t := transform.Chain(norm.NFD, accentFolder, norm.NFC)
	folded, _, err := transform.String(t, header)
	if err != nil {
		folded = header
	}
	folded = strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(folded), "*")))
	return strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	}), "_")
}
