package types

import (
	"strings"
	"time"
)

// Side 表示持仓方向。
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Sign returns +1 for long, -1 for short.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

func (s Side) Valid() bool {
	return s == Long || s == Short
}

// ParseSide accepts long/short and the exchange-style buy/sell aliases.
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "long", "buy":
		return Long, true
	case "short", "sell":
		return Short, true
	}
	return "", false
}

// PositionSnapshot is the read-only view served to the dashboard layer.
type PositionSnapshot struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Strategy        string    `json:"strategy"`
	Side            Side      `json:"side"`
	Status          string    `json:"status"`
	EntryPrice      float64   `json:"entry_price"`
	OriginalQty     float64   `json:"original_quantity"`
	RemainingQty    float64   `json:"remaining_quantity"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	RealizedPnL     float64   `json:"realized_pnl"`
	OpenedAt        time.Time `json:"opened_at"`
	HoldingMs       int64     `json:"holding_ms"`
	LastError       string    `json:"last_error,omitempty"`
	PartialCloses   int       `json:"partial_closes"`
	CurrentPrice    float64   `json:"current_price,omitempty"`
	UnrealizedPnL   float64   `json:"unrealized_pnl,omitempty"`
	UnrealizedPnPct float64   `json:"unrealized_pn_pct,omitempty"`
}

// AccountSnapshot mirrors the checkpointed capital figures.
type AccountSnapshot struct {
	InitialCapital float64   `json:"initial_capital"`
	CurrentCapital float64   `json:"current_capital"`
	DailyPnL       float64   `json:"daily_pnl"`
	UpdatedAt      time.Time `json:"updated_at"`
}
