package shared

import (
	"github.com/shopspring/decimal"
)

// DecimalField describes a fixed-point storage column: MaxDigits total
// digits, Places of them after the decimal point.
type DecimalField struct {
	Name      string
	MaxDigits int32
	Places    int32
}

// Quantize rounds v half-up to the field's places and checks that the
// integer part fits. Values that do not fit return an *OverflowError.
func (f DecimalField) Quantize(v decimal.Decimal) (decimal.Decimal, error) {
	// decimal.Round rounds half away from zero
	rounded := v.Round(f.Places)
	if rounded.Abs().GreaterThanOrEqual(f.limit()) {
		return v, &OverflowError{Field: f.Name, Value: v, MaxDigits: f.MaxDigits, Places: f.Places}
	}
	return rounded, nil
}

// Fits reports whether v fits the field after rounding
func (f DecimalField) Fits(v decimal.Decimal) bool {
	_, err := f.Quantize(v)
	return err == nil
}

func (f DecimalField) limit() decimal.Decimal {
	return decimal.New(1, f.MaxDigits-f.Places)
}

// SumDecimals returns the exact sum of values
func SumDecimals(values ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum
}
