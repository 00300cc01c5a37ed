package risk

import (
	"testing"

	"sentra/internal/config"

	"github.com/stretchr/testify/assert"
)

func testConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxTotalPositions:   5,
		MaxDailyTrades:      3,
		MaxDailyLossPct:     2.0,
		MaxDrawdownPct:      5.0,
		BasePositionSizePct: 1.0,
		MinPositionUSD:      10,
		MaxPositionUSD:      200,
	}
}

func TestCanOpenPositionLimit(t *testing.T) {
	m := NewManager(testConfig(), 10000)
	assert.NoError(t, m.CanOpen(4))
	assert.ErrorIs(t, m.CanOpen(5), ErrRejected)
}

func TestCanOpenDailyTradeLimit(t *testing.T) {
	m := NewManager(testConfig(), 10000)
	for i := 0; i < 3; i++ {
		m.RecordTrade(1)
	}
	assert.ErrorIs(t, m.CanOpen(0), ErrRejected)
}

func TestCanOpenDailyLossLimit(t *testing.T) {
	m := NewManager(testConfig(), 10000)
	m.RecordTrade(-150) // 1.5% of 10k, still fine
	assert.NoError(t, m.CanOpen(0))
	m.RecordTrade(-60) // 2.1% total
	assert.ErrorIs(t, m.CanOpen(0), ErrRejected)
}

func TestCanOpenDrawdownLimit(t *testing.T) {
	m := NewManager(testConfig(), 10000)
	// run capital up, then give most of it back inside the daily window
	m.Restore(10000, 12000, 0)
	m.RecordTrade(-700) // drawdown 700/12000 = 5.8%
	assert.ErrorIs(t, m.CanOpen(0), ErrRejected)
}

func TestPositionSizeScalesWithConfidence(t *testing.T) {
	m := NewManager(testConfig(), 10000)
	// 1% base of 10k = 100 USD at full confidence
	assert.InDelta(t, 1.0, m.PositionSize(100, 100), 1e-9)
	// half confidence halves the notional
	assert.InDelta(t, 0.5, m.PositionSize(100, 50), 1e-9)
}

func TestPositionSizeClamps(t *testing.T) {
	m := NewManager(testConfig(), 10000)
	// tiny confidence still funds the minimum ticket
	assert.InDelta(t, 10.0/100, m.PositionSize(100, 1), 1e-9)
	// huge capital hits the max ticket
	big := NewManager(testConfig(), 1_000_000)
	assert.InDelta(t, 200.0/100, big.PositionSize(100, 100), 1e-9)
}

func TestPositionSizeZeroWhenUnderfunded(t *testing.T) {
	m := NewManager(testConfig(), 5) // below the 10 USD minimum
	assert.Zero(t, m.PositionSize(100, 100))
	assert.Zero(t, m.PositionSize(0, 100))
}

func TestRecordTradeMovesCapital(t *testing.T) {
	m := NewManager(testConfig(), 10000)
	m.RecordTrade(25)
	m.RecordTrade(-10)
	acct := m.Account()
	assert.InDelta(t, 10015, acct.CurrentCapital, 1e-9)
	assert.InDelta(t, 15, acct.DailyPnL, 1e-9)
	assert.InDelta(t, 10000, acct.InitialCapital, 1e-9)
}
