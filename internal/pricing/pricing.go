// Package pricing computes statement amounts with fixed-point arithmetic.
// Prices arrive in minor currency units (e.g. cents); accumulation stays in
// integers and the division by 100 happens exactly once at the end.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Amount returns the charge for validCount calls priced at
// unitPriceMinorUnits each, expressed in major currency units with two
// decimal places. 1000 calls at 140 minor units is 1400.00.
func Amount(validCount int64, unitPriceMinorUnits int64) decimal.Decimal {
	minor := decimal.NewFromInt(validCount).Mul(decimal.NewFromInt(unitPriceMinorUnits))
	return minor.Div(hundred).Round(2)
}

// Sum adds statement amounts without losing precision.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
