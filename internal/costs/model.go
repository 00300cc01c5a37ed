package costs

import (
	"errors"

	"sentra/internal/types"
)

// ErrInvalidInput is returned for non-positive prices or quantities; callers
// must not open or close on such a quote.
var ErrInvalidInput = errors.New("costs: price and quantity must be positive")

// Slippage is scaled by volatility but never leaves this band (percent).
const (
	minSlippagePct = 0.01
	maxSlippagePct = 0.20
)

// Quote 是一次进/出场的成本报价，随算随用，从不落盘。
type Quote struct {
	AdjustedPrice float64
	Fee           float64
	SlippagePct   float64
	SpreadPct     float64
}

// Notional of the quoted fill.
func (q Quote) Notional(qty float64) float64 {
	return q.AdjustedPrice * qty
}

// Model produces symbol-aware execution-cost estimates so paper fills match
// real exchange economics.
type Model struct {
	fees   FeeSchedule
	tables *TableRegistry
}

func NewModel(fees FeeSchedule, tables *TableRegistry) *Model {
	return &Model{fees: fees, tables: tables}
}

func (m *Model) Fees() FeeSchedule { return m.fees }

// QuoteEntry prices an entry fill: slippage plus half the spread, both
// adverse for the taker direction (longs fill higher, shorts fill lower).
func (m *Model) QuoteEntry(symbol string, side types.Side, price, qty, volatility float64) (Quote, error) {
	return m.quote(symbol, side, price, qty, volatility, false)
}

// QuoteExit prices the closing fill, adverse in the opposite direction
// (closing a long fills lower, closing a short fills higher).
func (m *Model) QuoteExit(symbol string, side types.Side, price, qty, volatility float64) (Quote, error) {
	return m.quote(symbol, side, price, qty, volatility, true)
}

func (m *Model) quote(symbol string, side types.Side, price, qty, volatility float64, exit bool) (Quote, error) {
	if price <= 0 || qty <= 0 || !side.Valid() {
		return Quote{}, ErrInvalidInput
	}
	rates := m.tables.Current().Rates(symbol)
	slip := slippagePct(rates.SlippagePct, volatility)

	// Adverse direction: entries move against the opener, exits against the
	// closer.
	dir := side.Sign()
	if exit {
		dir = -dir
	}
	adjusted := applyPct(price, dir*(slip+rates.SpreadPct/2))
	if adjusted <= 0 {
		return Quote{}, ErrInvalidInput
	}
	fee := m.fees.EntryFee(adjusted * qty)
	return Quote{
		AdjustedPrice: adjusted,
		Fee:           fee,
		SlippagePct:   slip,
		SpreadPct:     rates.SpreadPct,
	}, nil
}

// RoundTripCostPct estimates the full cost of opening and closing one unit of
// notional on symbol: both fees, both slippage legs, and the spread.
func (m *Model) RoundTripCostPct(symbol string) float64 {
	rates := m.tables.Current().Rates(symbol)
	return m.fees.RoundTripFeePct() + 2*slippagePct(rates.SlippagePct, 0) + rates.SpreadPct
}

// MinimumTakeProfitPct is the smallest take-profit target that clears the
// round trip plus the configured profit margin, floored per market type.
func (m *Model) MinimumTakeProfitPct(symbol string) float64 {
	min := m.RoundTripCostPct(symbol) + profitMarginPct
	floor := spotMinTakeProfitPct
	if m.fees.Market == Futures {
		floor = futuresMinTakeProfitPct
	}
	if min < floor {
		return floor
	}
	return min
}

func slippagePct(basePct, volatility float64) float64 {
	if volatility < 0 {
		volatility = 0
	}
	if volatility > 1 {
		volatility = 1
	}
	return clampPct(basePct*(1+0.5*volatility), minSlippagePct, maxSlippagePct)
}
