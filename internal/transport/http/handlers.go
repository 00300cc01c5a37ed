package apihttp

import (
	"context"
	"net/http"
	"time"

	"sentra/internal/market"
	"sentra/internal/position"
	"sentra/internal/recorder"
	"sentra/internal/risk"
	"sentra/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

type handlers struct {
	registry *position.Registry
	trades   *recorder.Store
	risk     *risk.Manager
	source   market.Source
}

// positions returns the live registry enriched with the latest price where
// one is available; a missing price just leaves those fields empty.
func (h *handlers) positions(c *gin.Context) {
	open := h.registry.OpenSnapshot()
	out := make([]types.PositionSnapshot, 0, len(open))
	for _, p := range open {
		snap := p.Snapshot()
		if h.source != nil {
			priceCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			price, err := h.source.CurrentPrice(priceCtx, p.Symbol)
			cancel()
			if err == nil {
				snap.CurrentPrice = price
				snap.UnrealizedPnL = p.UnrealizedPnL(price)
				snap.UnrealizedPnPct = p.GrossMovePct(price)
			}
		}
		out = append(out, snap)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "positions": out})
}

func (h *handlers) account(c *gin.Context) {
	if h.risk == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no account tracking"})
		return
	}
	c.JSON(http.StatusOK, h.risk.Account())
}

func (h *handlers) recentTrades(c *gin.Context) {
	trades, err := h.trades.RecentTrades(c.Request.Context(), parseLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(trades), "trades": trades})
}

func (h *handlers) tradesCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="trade_history.csv"`)
	if err := h.trades.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func (h *handlers) stats(c *gin.Context) {
	stats, err := h.trades.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// equityChart renders the cumulative realized PnL curve as a standalone page.
func (h *handlers) equityChart(c *gin.Context) {
	series, err := h.trades.EquitySeries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	xs := make([]string, 0, len(series))
	ys := make([]opts.LineData, 0, len(series))
	for _, p := range series {
		xs = append(xs, p.At.Format("01-02 15:04"))
		ys = append(ys, opts.LineData{Value: p.CumPnL})
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Equity (realized PnL)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetXAxis(xs).AddSeries("cum_pnl", ys).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
