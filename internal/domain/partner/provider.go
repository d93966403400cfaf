package partner

import (
	"regexp"
	"strings"

	"github.com/textileplan/backend/internal/domain/shared"
)

// Field limits of a provider record
const (
	MaxNameLength    = 200
	MaxPhoneLength   = 20
	MaxAddressLength = 500
	MaxNotesLength   = 1000
)

var nonPhoneChars = regexp.MustCompile(`[^\d+\-\s()]`)

// Provider is a supplier of inputs. It only carries contact identity and
// has no derived fields.
type Provider struct {
	shared.BaseEntity
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=20"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	Notes       string `json:"notes" validate:"omitempty,max=1000"`
}

// NewProvider creates a new provider with normalized contact data
func NewProvider(name, email, phone, address, notes string) (*Provider, error) {
	p := &Provider{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        strings.TrimSpace(name),
		Email:       NormalizeEmail(email),
		PhoneNumber: CleanPhone(phone),
		Address:     strings.TrimSpace(address),
		Notes:       strings.TrimSpace(notes),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the provider's field constraints
func (p *Provider) Validate() error {
	return shared.ValidateStruct(p)
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CleanPhone removes every character that cannot appear in a phone number
func CleanPhone(phone string) string {
	return strings.TrimSpace(nonPhoneChars.ReplaceAllString(phone, ""))
}
