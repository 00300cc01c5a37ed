package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"sentra/internal/config"
	"sentra/internal/costs"
	"sentra/internal/market"
	"sentra/internal/position"
	"sentra/internal/recorder"
	"sentra/internal/risk"
	"sentra/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *position.Registry, *recorder.Store, *market.StaticSource) {
	t.Helper()
	registry := position.NewRegistry(5)
	store, err := recorder.NewStore(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	source := market.NewStaticSource()
	riskMgr := risk.NewManager(config.RiskConfig{MaxTotalPositions: 5, MaxDailyTrades: 20, MaxDailyLossPct: 2, MaxDrawdownPct: 5, BasePositionSizePct: 1, MinPositionUSD: 10, MaxPositionUSD: 200}, 10000)

	srv, err := NewServer(ServerConfig{
		Addr:     ":0",
		Registry: registry,
		Trades:   store,
		Risk:     riskMgr,
		Source:   source,
	})
	require.NoError(t, err)
	return srv, registry, store, source
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func openAndClose(t *testing.T, registry *position.Registry, store *recorder.Store) {
	t.Helper()
	key := position.NewKey("BTCUSDT", "scalping")
	pos, err := registry.TryOpen(key, nil, func() (*position.Position, error) {
		return position.Open(position.OpenParams{
			Symbol: "BTCUSDT", Strategy: "scalping", Side: types.Long, Quantity: 1,
			EntryQuote: costs.Quote{AdjustedPrice: 100, Fee: 0.075}, StopLossPct: 0.5, TakeProfitPct: 1.2,
		})
	})
	require.NoError(t, err)
	_, err = pos.CloseFull(costs.Quote{AdjustedPrice: 101.2, Fee: 0.07}, position.ReasonTakeProfit)
	require.NoError(t, err)
	_, err = store.SaveTrade(context.Background(), pos)
	require.NoError(t, err)
	registry.Remove(key)
}

func TestHealthz(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPositionsEndpoint(t *testing.T) {
	srv, registry, _, source := newTestServer(t)
	_, err := registry.TryOpen(position.NewKey("BTCUSDT", "scalping"), nil, func() (*position.Position, error) {
		return position.Open(position.OpenParams{
			Symbol: "BTCUSDT", Strategy: "scalping", Side: types.Long, Quantity: 1,
			EntryQuote: costs.Quote{AdjustedPrice: 100, Fee: 0.075}, StopLossPct: 0.5, TakeProfitPct: 1.2,
		})
	})
	require.NoError(t, err)
	source.SetPrice("BTCUSDT", 100.8)

	rec := get(t, srv, "/api/positions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count     int                      `json:"count"`
		Positions []types.PositionSnapshot `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "BTCUSDT", body.Positions[0].Symbol)
	assert.InDelta(t, 100.8, body.Positions[0].CurrentPrice, 1e-9)
	assert.InDelta(t, 0.8, body.Positions[0].UnrealizedPnL, 1e-6)
}

func TestTradesAndStatsEndpoints(t *testing.T) {
	srv, registry, store, _ := newTestServer(t)
	openAndClose(t, registry, store)

	rec := get(t, srv, "/api/trades?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var trades struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	assert.Equal(t, 1, trades.Count)

	rec = get(t, srv, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats recorder.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Trades)
	assert.Equal(t, int64(1), stats.Wins)
}

func TestTradesCSVEndpoint(t *testing.T) {
	srv, registry, store, _ := newTestServer(t)
	openAndClose(t, registry, store)

	rec := get(t, srv, "/api/trades.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "BTCUSDT")
	assert.Contains(t, rec.Body.String(), "take_profit")
}

func TestEquityChartEndpoint(t *testing.T) {
	srv, registry, store, _ := newTestServer(t)
	openAndClose(t, registry, store)

	rec := get(t, srv, "/api/equity.html")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")
}

func TestAccountEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := get(t, srv, "/api/account")
	require.Equal(t, http.StatusOK, rec.Code)
	var acct types.AccountSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
	assert.InDelta(t, 10000, acct.CurrentCapital, 1e-9)
}

func TestServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
