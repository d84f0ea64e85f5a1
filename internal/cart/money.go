package cart

import (
	"github.com/shopspring/decimal"

	"github.com/hongminglow/custody-be/internal/apperr"
)

// zeroDecimal lists currencies charged in whole units.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true, "xpf": true,
}

var maxMinorUnits = decimal.NewFromInt(1 << 53)

// MinorUnits converts amount to the smallest unit of currency, rounding half
// away from zero.
func MinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	scaled := amount
	if !zeroDecimal[currency] {
		scaled = amount.Shift(2)
	}
	scaled = scaled.Round(0)
	if scaled.GreaterThan(maxMinorUnits) {
		return 0, apperr.Validation("amount out of range")
	}
	return scaled.IntPart(), nil
}
