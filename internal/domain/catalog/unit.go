package catalog

import (
	"strings"

	"github.com/textileplan/backend/internal/domain/shared"
)

// Unit is a unit of measure with a Spanish and an English name.
// Units are reference data and are not modified after creation.
type Unit struct {
	shared.BaseEntity
	NameEs       string `json:"name_es" validate:"required,max=50"`
	NameEn       string `json:"name_en" validate:"required,max=50"`
	Abbreviation string `json:"abbreviation" validate:"required,max=10"`
}

// NewUnit creates a new unit of measure
func NewUnit(nameEs, nameEn, abbreviation string) (*Unit, error) {
	unit := &Unit{
		BaseEntity:   shared.NewBaseEntity(),
		NameEs:       strings.TrimSpace(nameEs),
		NameEn:       strings.TrimSpace(nameEn),
		Abbreviation: strings.TrimSpace(abbreviation),
	}
	if err := shared.ValidateStruct(unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// String returns the display form "name (abbr)"
func (u *Unit) String() string {
	return u.NameEs + " (" + u.Abbreviation + ")"
}
