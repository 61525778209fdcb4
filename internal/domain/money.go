package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Gateway amounts are integers in the currency's smallest unit. Most
// currencies have two decimals; these have none.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true,
	"clp": true,
	"djf": true,
	"gnf": true,
	"jpy": true,
	"kmf": true,
	"krw": true,
	"mga": true,
	"pyg": true,
	"rwf": true,
	"ugx": true,
	"vnd": true,
	"vuv": true,
	"xaf": true,
	"xof": true,
	"xpf": true,
}

// MinorUnitDecimals returns how many decimals a currency's minor unit
// carries.
func MinorUnitDecimals(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// FromMinorUnits converts a gateway integer amount to major units.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -MinorUnitDecimals(currency))
}

// ToMinorUnits converts a major-unit amount to the gateway's integer
// amount, rounding to the nearest minor unit.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(MinorUnitDecimals(currency)).Round(0).IntPart()
}
