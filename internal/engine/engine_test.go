package engine

import (
	"context"
	"math"
	"testing"

	"sentra/internal/broker"
	"sentra/internal/config"
	"sentra/internal/costs"
	"sentra/internal/indicator"
	"sentra/internal/market"
	"sentra/internal/position"
	"sentra/internal/risk"
	"sentra/internal/strategy"
	"sentra/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	name string
	sig  *strategy.Signal
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) Evaluate(indicator.Snapshot, float64, strategy.Regime) *strategy.Signal {
	return s.sig
}

func rampCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	price := 100.0
	for i := range out {
		price += 0.05 + 0.2*math.Sin(float64(i)/4)
		out[i] = market.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1) * 60_000,
			Open:      price - 0.02,
			High:      price + 0.1,
			Low:       price - 0.1,
			Close:     price,
			Volume:    1200,
		}
	}
	return out
}

func newTestEngine(t *testing.T, sig *strategy.Signal, capital float64) (*Engine, *market.StaticSource, *position.Registry) {
	t.Helper()
	fees, err := costs.NewFeeSchedule(costs.Spot, false, 0, 0)
	require.NoError(t, err)
	tables, err := costs.NewTableRegistry("")
	require.NoError(t, err)

	source := market.NewStaticSource()
	registry := position.NewRegistry(5)
	riskMgr := risk.NewManager(config.RiskConfig{
		MaxTotalPositions:   5,
		MaxDailyTrades:      20,
		MaxDailyLossPct:     2,
		MaxDrawdownPct:      5,
		BasePositionSizePct: 1,
		MinPositionUSD:      10,
		MaxPositionUSD:      200,
	}, capital)

	eng := New(Params{
		Trading: config.TradingConfig{
			PaperTrading: true,
			MarketType:   "spot",
			Symbols:      []string{"BTCUSDT"},
			ScanInterval: 30,
		},
		Strategies: []strategy.Strategy{&stubStrategy{name: "scalping", sig: sig}},
		Source:     source,
		Broker:     broker.NewPaperBroker(),
		Model:      costs.NewModel(fees, tables),
		Registry:   registry,
		Risk:       riskMgr,
	})
	return eng, source, registry
}

func TestScanOpensPositionOnSignal(t *testing.T) {
	sig := &strategy.Signal{Side: types.Long, Confidence: 100, StopLossPct: 0.5, TakeProfitPct: 1.2}
	eng, source, registry := newTestEngine(t, sig, 10000)
	source.SetCandles("BTCUSDT", rampCandles(120))
	source.SetPrice("BTCUSDT", 100)

	eng.scanSymbol(context.Background(), "BTCUSDT")

	require.Equal(t, 1, registry.Len())
	pos, ok := registry.Get(position.NewKey("BTCUSDT", "scalping"))
	require.True(t, ok)
	// paper entry fill carries slippage plus half the spread; the exact
	// slippage depends on the measured volatility, so allow a little room
	assert.InDelta(t, 100.035, pos.EntryPrice, 5e-3)
	assert.Greater(t, pos.EntryPrice, 100.0)
	// 1% of 10k at full confidence = 100 USD
	assert.InDelta(t, 1.0, pos.OriginalQty, 1e-6)
	assert.Equal(t, types.Long, pos.Side)
}

func TestScanRaisesTakeProfitToFloor(t *testing.T) {
	// 0.20% would not even pay the round trip; BTCUSDT spot floor is 0.40%
	sig := &strategy.Signal{Side: types.Long, Confidence: 100, StopLossPct: 0.5, TakeProfitPct: 0.20}
	eng, source, registry := newTestEngine(t, sig, 10000)
	source.SetCandles("BTCUSDT", rampCandles(120))
	source.SetPrice("BTCUSDT", 100)

	eng.scanSymbol(context.Background(), "BTCUSDT")

	pos, ok := registry.Get(position.NewKey("BTCUSDT", "scalping"))
	require.True(t, ok)
	wantTarget := pos.EntryPrice * (1 + 0.40/100)
	assert.InDelta(t, wantTarget, pos.TakeProfit, 1e-6)
}

func TestScanSkipsSymbolWithOpenPosition(t *testing.T) {
	sig := &strategy.Signal{Side: types.Long, Confidence: 100, StopLossPct: 0.5, TakeProfitPct: 1.2}
	eng, source, registry := newTestEngine(t, sig, 10000)
	source.SetCandles("BTCUSDT", rampCandles(120))
	source.SetPrice("BTCUSDT", 100)

	eng.scanSymbol(context.Background(), "BTCUSDT")
	eng.scanSymbol(context.Background(), "BTCUSDT")

	assert.Equal(t, 1, registry.Len())
	pos, _ := registry.Get(position.NewKey("BTCUSDT", "scalping"))
	assert.Len(t, pos.Partials(), 0)
}

func TestScanNoSignalNoPosition(t *testing.T) {
	eng, source, registry := newTestEngine(t, nil, 10000)
	source.SetCandles("BTCUSDT", rampCandles(120))
	source.SetPrice("BTCUSDT", 100)

	eng.scanSymbol(context.Background(), "BTCUSDT")

	assert.Zero(t, registry.Len())
}

func TestScanUnderfundedSkips(t *testing.T) {
	sig := &strategy.Signal{Side: types.Long, Confidence: 100, StopLossPct: 0.5, TakeProfitPct: 1.2}
	eng, source, registry := newTestEngine(t, sig, 5) // below the minimum ticket
	source.SetCandles("BTCUSDT", rampCandles(120))
	source.SetPrice("BTCUSDT", 100)

	eng.scanSymbol(context.Background(), "BTCUSDT")

	assert.Zero(t, registry.Len())
}

func TestScanSurvivesBadFeed(t *testing.T) {
	sig := &strategy.Signal{Side: types.Long, Confidence: 100, StopLossPct: 0.5, TakeProfitPct: 1.2}
	eng, source, registry := newTestEngine(t, sig, 10000)
	// no candles at all
	source.SetPrice("BTCUSDT", 100)
	eng.scanSymbol(context.Background(), "BTCUSDT")
	assert.Zero(t, registry.Len())

	// candles but no price
	source.SetCandles("BTCUSDT", rampCandles(120))
	source.SetError("BTCUSDT", market.ErrPriceUnavailable)
	eng.scanSymbol(context.Background(), "BTCUSDT")
	assert.Zero(t, registry.Len())
}
