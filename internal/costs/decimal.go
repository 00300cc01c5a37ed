package costs

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne     = decimal.NewFromInt(1)
	decHundred = decimal.NewFromInt(100)
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

// applyPct multiplies price by (1 + pct/100) with pct possibly negative.
func applyPct(price, pct float64) float64 {
	base := decFromFloat(price)
	factor := decOne.Add(decFromFloat(pct).Div(decHundred))
	return decToFloat(base.Mul(factor))
}

func pctOf(notional, pct float64) float64 {
	return decToFloat(decFromFloat(notional).Mul(decFromFloat(pct)).Div(decHundred))
}

func clampPct(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
