package recorder

import (
	"time"

	"gorm.io/datatypes"
)

// ClosedTrade is the immutable record of one fully closed position. Partial
// closes are folded into the History column, never emitted as separate rows.
type ClosedTrade struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	TradeID        string `gorm:"size:64;uniqueIndex" json:"trade_id"`
	Symbol         string `gorm:"size:32;index" json:"symbol"`
	Strategy       string `gorm:"size:64;index" json:"strategy"`
	Side           string `gorm:"size:8" json:"side"`
	EntryPrice     float64 `json:"entry_price"`
	ExitPrice      float64 `json:"exit_price"`
	Quantity       float64 `json:"quantity"`
	FeesTotal      float64 `json:"fees_total"`
	RealizedPnL    float64 `json:"realized_pnl"`
	RealizedPnLPct float64 `json:"realized_pnl_pct"`
	CloseReason    string  `gorm:"size:32" json:"close_reason"`
	History        datatypes.JSON `json:"history"`
	OpenedAt       time.Time `gorm:"index" json:"opened_at"`
	ClosedAt       time.Time `gorm:"index" json:"closed_at"`
	CreatedAt      time.Time `json:"-"`
}

func (ClosedTrade) TableName() string { return "closed_trades" }

// Stats aggregates the trade history for the dashboard.
type Stats struct {
	Trades    int64   `json:"trades"`
	Wins      int64   `json:"wins"`
	Losses    int64   `json:"losses"`
	WinRate   float64 `json:"win_rate"`
	TotalPnL  float64 `json:"total_pnl"`
	TotalFees float64 `json:"total_fees"`
}

// EquityPoint is one step of the cumulative realized PnL curve.
type EquityPoint struct {
	At     time.Time `json:"at"`
	CumPnL float64   `json:"cum_pnl"`
}
