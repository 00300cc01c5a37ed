package costs

import (
	"fmt"
	"strings"
)

// MarketType selects the fee tier.
type MarketType string

const (
	Spot    MarketType = "spot"
	Futures MarketType = "futures"
)

// Exchange fee rates, percent per fill (Bybit 2024/2025 tier).
const (
	spotMakerFeePct    = 0.055
	spotTakerFeePct    = 0.075
	futuresMakerFeePct = 0.02
	futuresTakerFeePct = 0.04

	// 最低利润余量，叠加在往返成本之上。
	profitMarginPct = 0.15

	spotMinTakeProfitPct    = 0.40
	futuresMinTakeProfitPct = 0.25
)

// FeeSchedule computes exchange fees for one market type. Rates are percent
// (0.075 means 0.075%).
type FeeSchedule struct {
	Market   MarketType
	MakerPct float64
	TakerPct float64
	UseMaker bool
}

// NewFeeSchedule builds the schedule for market, with optional percent
// overrides (zero keeps the exchange default).
func NewFeeSchedule(market MarketType, useMaker bool, makerOverridePct, takerOverridePct float64) (FeeSchedule, error) {
	s := FeeSchedule{Market: market, UseMaker: useMaker}
	switch MarketType(strings.ToLower(string(market))) {
	case Spot:
		s.Market = Spot
		s.MakerPct = spotMakerFeePct
		s.TakerPct = spotTakerFeePct
	case Futures:
		s.Market = Futures
		s.MakerPct = futuresMakerFeePct
		s.TakerPct = futuresTakerFeePct
	default:
		return FeeSchedule{}, fmt.Errorf("fee schedule: unknown market type %q", market)
	}
	if makerOverridePct > 0 {
		s.MakerPct = makerOverridePct
	}
	if takerOverridePct > 0 {
		s.TakerPct = takerOverridePct
	}
	return s, nil
}

// RatePct returns the applicable fee rate in percent.
func (s FeeSchedule) RatePct() float64 {
	if s.UseMaker {
		return s.MakerPct
	}
	return s.TakerPct
}

// EntryFee returns the fee in quote currency for an entry of the given
// notional. Non-positive notionals cost nothing.
func (s FeeSchedule) EntryFee(notional float64) float64 {
	if notional <= 0 {
		return 0
	}
	return pctOf(notional, s.RatePct())
}

// ExitFee mirrors EntryFee; both sides of a round trip pay the same rate.
func (s FeeSchedule) ExitFee(notional float64) float64 {
	return s.EntryFee(notional)
}

// RoundTripFee is the total fee for entering and exiting the same notional.
func (s FeeSchedule) RoundTripFee(notional float64) float64 {
	return s.EntryFee(notional) + s.ExitFee(notional)
}

// RoundTripFeePct is the round-trip fee as a percent of notional.
func (s FeeSchedule) RoundTripFeePct() float64 {
	return 2 * s.RatePct()
}
