package recorder

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"trade_id", "symbol", "strategy", "side",
	"entry_price", "exit_price", "quantity",
	"opened_at", "closed_at",
	"pnl", "pnl_pct", "fees_total", "close_reason",
}

// ExportCSV streams the full trade history as CSV, oldest first.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) error {
	var trades []ClosedTrade
	if err := s.db.WithContext(ctx).Order("closed_at ASC").Find(&trades).Error; err != nil {
		return fmt.Errorf("recorder: export: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("recorder: export header: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.TradeID, t.Symbol, t.Strategy, t.Side,
			formatFloat(t.EntryPrice), formatFloat(t.ExitPrice), formatFloat(t.Quantity),
			t.OpenedAt.Format(time.RFC3339), t.ClosedAt.Format(time.RFC3339),
			formatFloat(t.RealizedPnL), formatFloat(t.RealizedPnLPct), formatFloat(t.FeesTotal),
			t.CloseReason,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("recorder: export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
