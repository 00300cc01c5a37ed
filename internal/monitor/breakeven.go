package monitor

import (
	"github.com/shopspring/decimal"

	"sentra/internal/position"
)

// Breakeven-plus sizing bounds: never shave off less than 10% (pointless
// dust) or more than 90% (that is a take-profit, not a fee trim).
const (
	minBreakevenFraction = 0.10
	maxBreakevenFraction = 0.90
)

// breakevenFraction sizes the partial close that locks the round-trip cost
// in. grossMovePct is the signed profit-ward move; costPct is the full
// round-trip cost plus the configured buffer, both percent of notional.
//
// Closing fraction f of the position realizes roughly f·grossMovePct of the
// position's notional, so f = costPct/grossMovePct is the smallest slice
// whose realized profit pays for the whole round trip.
func breakevenFraction(grossMovePct, costPct float64) float64 {
	if grossMovePct <= 0 {
		return 0
	}
	f := costPct / grossMovePct
	if f < minBreakevenFraction {
		f = minBreakevenFraction
	}
	if f > maxBreakevenFraction {
		f = maxBreakevenFraction
	}
	return f
}

// breakevenEligible applies the net-profit gate: the move must clear the
// round-trip cost by strictly more than minNetProfitPct, and the rule fires
// at most once per position. Decimal comparison keeps a move landing exactly
// on the floor from slipping through on float error.
func breakevenEligible(p *position.Position, grossMovePct, roundTripPct, minNetProfitPct float64) bool {
	if p.BreakevenDone() {
		return false
	}
	net := decimal.NewFromFloat(grossMovePct).Sub(decimal.NewFromFloat(roundTripPct))
	return net.GreaterThan(decimal.NewFromFloat(minNetProfitPct))
}
