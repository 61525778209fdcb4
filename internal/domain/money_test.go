package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		currency string
		minor    int64
		major    string
	}{
		{"usd", 2500, "25"},
		{"EUR", 1234, "12.34"},
		{"jpy", 1000, "1000"},
		{"KRW", 55000, "55000"},
		{"", 99, "0.99"},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			got := FromMinorUnits(tt.minor, tt.currency)
			assert.True(t, decimal.RequireFromString(tt.major).Equal(got), "got %s", got)
			assert.Equal(t, tt.minor, ToMinorUnits(got, tt.currency))
		})
	}
}

func TestToMinorUnits_Rounds(t *testing.T) {
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.985"), "usd"))
	assert.Equal(t, int64(1000), ToMinorUnits(decimal.RequireFromString("999.5"), "jpy"))
}
