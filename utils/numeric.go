package utils

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ToDecimal coerces arbitrary user input to a decimal amount. Anything that
// does not parse to a finite number becomes zero: amounts coming from
// half-typed form fields must never break a calculation.
func ToDecimal(input any) decimal.Decimal {
	switch v := input.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case string:
		return parseDecimalString(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	case float32:
		return ToDecimal(float64(v))
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		return decimal.Zero
	}
}

func parseDecimalString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	// comma used as decimal separator in es-ES locale input
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
