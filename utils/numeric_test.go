package utils

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "0"},
		{"empty string", "", "0"},
		{"garbage", "abc", "0"},
		{"NaN", math.NaN(), "0"},
		{"positive infinity", math.Inf(1), "0"},
		{"negative infinity", math.Inf(-1), "0"},
		{"plain number", 42.5, "42.5"},
		{"numeric string", "1234.56", "1234.56"},
		{"comma separator", "1234,56", "1234.56"},
		{"whitespace", "  10 ", "10"},
		{"negative string", "-99.9", "-99.9"},
		{"int", 7, "7"},
		{"int64", int64(-3), "-3"},
		{"bool is not a number", true, "0"},
		{"decimal passthrough", decimal.NewFromInt(5), "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDecimal(tt.input)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}
