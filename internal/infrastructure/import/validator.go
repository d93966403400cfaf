package csvimport

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/textileplan/backend/internal/domain/shared"
)

// FieldRule defines validation rules for a canonical field
type FieldRule struct {
	Column    string
	Label     string
	Required  bool
	Email     bool
	MaxLength int
	Clean     func(value string) string
}

func (r FieldRule) label() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Column
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field creates a new field rule builder
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column}}
}

// Label sets the name used in error messages
func (b *FieldRuleBuilder) Label(label string) *FieldRuleBuilder {
	b.rule.Label = label
	return b
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Email requires the value to be an email address
func (b *FieldRuleBuilder) Email() *FieldRuleBuilder {
	b.rule.Email = true
	return b
}

// MaxLength sets the maximum length in characters
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Clean sets a transform applied to the value before validation. The
// cleaned value replaces the original in the record.
func (b *FieldRuleBuilder) Clean(fn func(value string) string) *FieldRuleBuilder {
	b.rule.Clean = fn
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldError is a validation failure on one field of a record
type FieldError struct {
	Column  string
	Code    string
	Message string
	Value   string
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return e.Message
}

// RowValidator checks a mapped record and returns the cleaned record.
// The returned error is the first failure found.
type RowValidator interface {
	Validate(rec Record) (Record, *FieldError)
}

// RuleSet validates records against an ordered list of field rules
type RuleSet struct {
	rules []FieldRule
}

// NewRuleSet creates a validator. Rules are checked in the given order.
func NewRuleSet(rules ...FieldRule) *RuleSet {
	return &RuleSet{rules: rules}
}

// Validate implements RowValidator
func (s *RuleSet) Validate(rec Record) (Record, *FieldError) {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	for _, rule := range s.rules {
		value := strings.TrimSpace(out[rule.Column])
		if rule.Clean != nil {
			value = rule.Clean(value)
		}
		if value == "" {
			delete(out, rule.Column)
			if rule.Required {
				return nil, &FieldError{
					Column:  rule.Column,
					Code:    ErrCodeImportRequiredField,
					Message: fmt.Sprintf("%s is required", rule.label()),
				}
			}
			continue
		}
		out[rule.Column] = value

		if ferr := rule.check(value); ferr != nil {
			return nil, ferr
		}
	}
	return out, nil
}

func (r FieldRule) check(value string) *FieldError {
	if r.Email {
		if err := shared.Validator().Var(value, "email"); err != nil {
			return &FieldError{
				Column:  r.Column,
				Code:    ErrCodeImportInvalidFormat,
				Message: fmt.Sprintf("Invalid email format: %s", value),
				Value:   value,
			}
		}
	}

	if n := utf8.RuneCountInString(value); r.MaxLength > 0 && n > r.MaxLength {
		return &FieldError{
			Column:  r.Column,
			Code:    ErrCodeImportInvalidLength,
			Message: fmt.Sprintf("%s too long (max %d characters, got %d)", r.label(), r.MaxLength, n),
			Value:   value,
		}
	}
	return nil
}
