package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalField_Quantize(t *testing.T) {
	price := DecimalField{Name: "price_per_unit", MaxDigits: 12, Places: 2}

	t.Run("rounds half up", func(t *testing.T) {
		v, err := price.Quantize(decimal.RequireFromString("10.005"))
		require.NoError(t, err)
		assert.Equal(t, "10.01", v.StringFixed(2))

		v, err = price.Quantize(decimal.RequireFromString("10.004"))
		require.NoError(t, err)
		assert.Equal(t, "10.00", v.StringFixed(2))
	})

	t.Run("accepts largest value", func(t *testing.T) {
		v, err := price.Quantize(decimal.RequireFromString("9999999999.99"))
		require.NoError(t, err)
		assert.Equal(t, "9999999999.99", v.String())
	})

	t.Run("rejects value past digit range", func(t *testing.T) {
		_, err := price.Quantize(decimal.RequireFromString("10000000000"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOverflow))

		var overflow *OverflowError
		require.True(t, errors.As(err, &overflow))
		assert.Equal(t, "price_per_unit", overflow.Field)
		assert.Equal(t, int32(12), overflow.MaxDigits)
	})

	t.Run("rounding can push value over the limit", func(t *testing.T) {
		assert.False(t, price.Fits(decimal.RequireFromString("9999999999.995")))
	})

	t.Run("negative values are checked by magnitude", func(t *testing.T) {
		assert.False(t, price.Fits(decimal.RequireFromString("-10000000000")))
		assert.True(t, price.Fits(decimal.RequireFromString("-5")))
	})
}

func TestSumDecimals(t *testing.T) {
	assert.True(t, SumDecimals().IsZero())
	sum := SumDecimals(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"))
	assert.True(t, sum.Equal(decimal.RequireFromString("0.3")))
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("typed errors match sentinels", func(t *testing.T) {
		assert.True(t, errors.Is(NewValidationError("email", "invalid"), ErrValidation))
		assert.True(t, errors.Is(NewDuplicateError("provider", "name=ACME"), ErrDuplicate))
		assert.True(t, errors.Is(NewReferentialIntegrityError("bom item", NewID(), "missing input provider"), ErrReferentialIntegrity))
		assert.True(t, errors.Is(NewOperationalError("save", errors.New("disk full")), ErrOperational))
	})

	t.Run("wrapped errors keep their category", func(t *testing.T) {
		err := fmt.Errorf("recompute: %w", NewValidationError("quantity", "must be positive"))
		assert.True(t, IsExpected(err))
		assert.Equal(t, err.Error(), PublicMessage(err))
	})

	t.Run("unexpected errors hide detail", func(t *testing.T) {
		err := NewOperationalError("save", errors.New("pq: connection refused"))
		assert.False(t, IsExpected(err))
		assert.Equal(t, ErrOperational.Message, PublicMessage(err))
		assert.Equal(t, ErrOperational.Message, PublicMessage(errors.New("boom")))
	})

	t.Run("validation message includes field", func(t *testing.T) {
		assert.Equal(t, "email: invalid", NewValidationError("email", "invalid").Error())
		assert.Equal(t, "invalid", NewValidationError("", "invalid").Error())
	})
}

func TestNewBaseEntity_OrderedIDs(t *testing.T) {
	first := NewBaseEntity()
	second := NewBaseEntity()
	assert.Less(t, first.ID.String(), second.ID.String())
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, time.UTC, first.CreatedAt.Location())

	first.Touch()
	assert.Equal(t, time.UTC, first.UpdatedAt.Location())
}
