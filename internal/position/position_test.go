package position

import (
	"testing"
	"time"

	"sentra/internal/costs"
	"sentra/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLong(t *testing.T) *Position {
	t.Helper()
	pos, err := Open(OpenParams{
		Symbol:        "btcusdt",
		Strategy:      "scalping",
		Side:          types.Long,
		Quantity:      1,
		EntryQuote:    costs.Quote{AdjustedPrice: 100, Fee: 0.075},
		StopLossPct:   0.5,
		TakeProfitPct: 1.2,
	})
	require.NoError(t, err)
	return pos
}

func TestOpenDerivesLevels(t *testing.T) {
	pos := openLong(t)
	assert.Equal(t, "BTCUSDT", pos.Symbol)
	assert.InDelta(t, 99.5, pos.StopLoss, 1e-9)
	assert.InDelta(t, 101.2, pos.TakeProfit, 1e-9)
	assert.Equal(t, StatusOpen, pos.Status())
	assert.False(t, pos.OpenedAt.IsZero())
}

func TestOpenShortLevelsMirror(t *testing.T) {
	pos, err := Open(OpenParams{
		Symbol:        "ETHUSDT",
		Strategy:      "momentum",
		Side:          types.Short,
		Quantity:      2,
		EntryQuote:    costs.Quote{AdjustedPrice: 200, Fee: 0.3},
		StopLossPct:   1,
		TakeProfitPct: 2,
	})
	require.NoError(t, err)
	assert.InDelta(t, 202, pos.StopLoss, 1e-9)
	assert.InDelta(t, 196, pos.TakeProfit, 1e-9)
}

func TestOpenRejectsBadParams(t *testing.T) {
	base := OpenParams{
		Symbol:        "BTCUSDT",
		Strategy:      "scalping",
		Side:          types.Long,
		Quantity:      1,
		EntryQuote:    costs.Quote{AdjustedPrice: 100},
		StopLossPct:   0.5,
		TakeProfitPct: 1,
	}
	cases := map[string]func(*OpenParams){
		"empty symbol":   func(p *OpenParams) { p.Symbol = " " },
		"empty strategy": func(p *OpenParams) { p.Strategy = "" },
		"bad side":       func(p *OpenParams) { p.Side = "sideways" },
		"zero qty":       func(p *OpenParams) { p.Quantity = 0 },
		"zero price":     func(p *OpenParams) { p.EntryQuote = costs.Quote{} },
		"zero stop":      func(p *OpenParams) { p.StopLossPct = 0 },
		"stop over 100":  func(p *OpenParams) { p.StopLossPct = 120 },
		"zero target":    func(p *OpenParams) { p.TakeProfitPct = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			_, err := Open(p)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestClosePartialLedger(t *testing.T) {
	pos := openLong(t)

	res, err := pos.ClosePartial(0.4, costs.Quote{AdjustedPrice: 102, Fee: 0.03}, ReasonBreakevenPlus)
	require.NoError(t, err)
	assert.False(t, res.FullClose)
	assert.InDelta(t, 0.6, res.RemainingQty, 1e-9)
	// gross 2*0.4=0.8, entry fee share 0.075*0.4=0.03, exit fee 0.03
	assert.InDelta(t, 0.74, res.RealizedPnL, 1e-9)
	assert.Equal(t, StatusPartiallyClosed, pos.Status())

	res2, err := pos.ClosePartial(0.6, costs.Quote{AdjustedPrice: 101, Fee: 0.045}, ReasonTakeProfit)
	require.NoError(t, err)
	assert.True(t, res2.FullClose)
	// gross 1*0.6=0.6, entry fee share 0.045, exit fee 0.045
	assert.InDelta(t, 0.51, res2.RealizedPnL, 1e-9)
	assert.InDelta(t, 1.25, res2.TotalPnL, 1e-9)
	assert.Equal(t, StatusClosed, pos.Status())
	assert.Equal(t, ReasonTakeProfit, pos.Reason())
	assert.False(t, pos.ClosedAt().IsZero())
	assert.Len(t, pos.Partials(), 2)
	// entry 0.075 + 0.03 + 0.045
	assert.InDelta(t, 0.15, pos.FeesTotal(), 1e-9)
}

func TestFeesTotalCountsEntryFeeOnce(t *testing.T) {
	pos := openLong(t)
	// fully open: just the entry fee
	assert.InDelta(t, 0.075, pos.FeesTotal(), 1e-9)

	_, err := pos.ClosePartial(0.4, costs.Quote{AdjustedPrice: 102, Fee: 0.03}, ReasonBreakevenPlus)
	require.NoError(t, err)
	// entry 0.075 + first exit 0.03, however the entry fee is split over slices
	assert.InDelta(t, 0.105, pos.FeesTotal(), 1e-9)

	_, err = pos.ClosePartial(0.6, costs.Quote{AdjustedPrice: 101, Fee: 0.045}, ReasonTakeProfit)
	require.NoError(t, err)
	// entry 0.075 + exits 0.03 + 0.045, entry fee counted exactly once
	assert.InDelta(t, 0.15, pos.FeesTotal(), 1e-9)
}

func TestClosePartialOverClose(t *testing.T) {
	pos := openLong(t)
	_, err := pos.ClosePartial(1.5, costs.Quote{AdjustedPrice: 101, Fee: 0}, ReasonManual)
	assert.ErrorIs(t, err, ErrOverClose)
	_, err = pos.ClosePartial(0, costs.Quote{AdjustedPrice: 101, Fee: 0}, ReasonManual)
	assert.ErrorIs(t, err, ErrOverClose)
	// rejection must not touch the ledger
	assert.InDelta(t, 1, pos.RemainingQty(), 1e-9)
	assert.Empty(t, pos.Partials())
}

func TestCloseExactlyOnce(t *testing.T) {
	pos := openLong(t)
	_, err := pos.CloseFull(costs.Quote{AdjustedPrice: 99, Fee: 0.07}, ReasonStopLoss)
	require.NoError(t, err)
	_, err = pos.CloseFull(costs.Quote{AdjustedPrice: 99, Fee: 0.07}, ReasonStopLoss)
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	_, err = pos.ClosePartial(0.1, costs.Quote{AdjustedPrice: 99, Fee: 0}, ReasonManual)
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	assert.Len(t, pos.Partials(), 1)
}

func TestConcurrentFullCloseSingleWinner(t *testing.T) {
	pos := openLong(t)
	const workers = 16
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := pos.CloseFull(costs.Quote{AdjustedPrice: 101.5, Fee: 0.07}, ReasonTakeProfit)
			results <- err
		}()
	}
	wins := 0
	for i := 0; i < workers; i++ {
		if err := <-results; err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyClosed)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, pos.Partials(), 1)
	assert.Equal(t, StatusClosed, pos.Status())
}

func TestDustRemainderClosesPosition(t *testing.T) {
	pos := openLong(t)
	_, err := pos.ClosePartial(1-1e-12, costs.Quote{AdjustedPrice: 100.5, Fee: 0.01}, ReasonManual)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, pos.Status())
	assert.Zero(t, pos.RemainingQty())
}

func TestGrossMovePct(t *testing.T) {
	pos := openLong(t)
	assert.InDelta(t, 1.2, pos.GrossMovePct(101.2), 1e-9)
	assert.InDelta(t, -0.5, pos.GrossMovePct(99.5), 1e-9)

	short, err := Open(OpenParams{
		Symbol: "ETHUSDT", Strategy: "s", Side: types.Short, Quantity: 1,
		EntryQuote: costs.Quote{AdjustedPrice: 100}, StopLossPct: 1, TakeProfitPct: 2,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1, short.GrossMovePct(99), 1e-9)
}

func TestBreakevenFiresOnce(t *testing.T) {
	pos := openLong(t)
	assert.False(t, pos.BreakevenDone())
	pos.MarkBreakevenDone()
	assert.True(t, pos.BreakevenDone())
}

func TestSuccessfulCloseClearsLastError(t *testing.T) {
	pos := openLong(t)
	pos.SetLastError("order failed")
	assert.Equal(t, "order failed", pos.LastError())
	_, err := pos.ClosePartial(0.5, costs.Quote{AdjustedPrice: 101, Fee: 0}, ReasonManual)
	require.NoError(t, err)
	assert.Empty(t, pos.LastError())
}

func TestSnapshot(t *testing.T) {
	pos := openLong(t)
	pos.OpenedAt = time.Now().Add(-time.Minute)
	snap := pos.Snapshot()
	assert.Equal(t, pos.ID, snap.ID)
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, string(StatusOpen), snap.Status)
	assert.GreaterOrEqual(t, snap.HoldingMs, int64(60_000))
}
