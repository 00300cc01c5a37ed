package recorder

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"sentra/internal/costs"
	"sentra/internal/position"
	"sentra/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	return s
}

func closedPosition(t *testing.T, exitPrice float64) *position.Position {
	t.Helper()
	pos, err := position.Open(position.OpenParams{
		Symbol:        "BTCUSDT",
		Strategy:      "scalping",
		Side:          types.Long,
		Quantity:      1,
		EntryQuote:    costs.Quote{AdjustedPrice: 100, Fee: 0.075},
		StopLossPct:   0.5,
		TakeProfitPct: 1.2,
	})
	require.NoError(t, err)
	_, err = pos.CloseFull(costs.Quote{AdjustedPrice: exitPrice, Fee: 0.07}, position.ReasonTakeProfit)
	require.NoError(t, err)
	return pos
}

func TestSaveTradeRequiresClosedPosition(t *testing.T) {
	s := newTestStore(t)
	open, err := position.Open(position.OpenParams{
		Symbol: "BTCUSDT", Strategy: "s", Side: types.Long, Quantity: 1,
		EntryQuote: costs.Quote{AdjustedPrice: 100}, StopLossPct: 0.5, TakeProfitPct: 1,
	})
	require.NoError(t, err)
	_, err = s.SaveTrade(context.Background(), open)
	assert.Error(t, err)
	_, err = s.SaveTrade(context.Background(), nil)
	assert.Error(t, err)
}

func TestSaveAndQueryTrades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.SaveTrade(ctx, closedPosition(t, 101.2))
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", rec.Symbol)
	assert.Equal(t, string(position.ReasonTakeProfit), rec.CloseReason)
	assert.InDelta(t, 101.2, rec.ExitPrice, 1e-9)
	assert.Positive(t, rec.RealizedPnL)
	assert.NotEmpty(t, rec.History)

	trades, err := s.RecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, rec.TradeID, trades[0].TradeID)
}

func TestDuplicateTradeIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pos := closedPosition(t, 101.2)
	_, err := s.SaveTrade(ctx, pos)
	require.NoError(t, err)
	_, err = s.SaveTrade(ctx, pos)
	assert.Error(t, err, "unique index on trade_id must hold")
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.SaveTrade(ctx, closedPosition(t, 101.2))
	require.NoError(t, err)
	_, err = s.SaveTrade(ctx, closedPosition(t, 99.0))
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Trades)
	assert.Equal(t, int64(1), stats.Wins)
	assert.Equal(t, int64(1), stats.Losses)
	assert.InDelta(t, 50, stats.WinRate, 1e-9)
	assert.InDelta(t, 0.29, stats.TotalFees, 1e-6)
}

func TestEquitySeriesIsCumulative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.SaveTrade(ctx, closedPosition(t, 101.2))
	require.NoError(t, err)
	_, err = s.SaveTrade(ctx, closedPosition(t, 99.0))
	require.NoError(t, err)

	series, err := s.EquitySeries(ctx)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Positive(t, series[0].CumPnL)
	assert.Less(t, series[1].CumPnL, series[0].CumPnL)
}

func TestExportCSV(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.SaveTrade(ctx, closedPosition(t, 101.2))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(ctx, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "BTCUSDT", rows[1][1])
	assert.Equal(t, "take_profit", rows[1][12])
}
