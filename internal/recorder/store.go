package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sentra/internal/position"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store 负责已平仓交易的追加写入与查询。写入串行化，读路径无锁。
type Store struct {
	db *gorm.DB

	// Appends are serialized; sqlite WAL tolerates concurrent readers but a
	// single writer keeps ordering deterministic.
	writeMu sync.Mutex
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("recorder: db path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("recorder: open db: %w", err)
	}
	if err := db.AutoMigrate(&ClosedTrade{}); err != nil {
		return nil, fmt.Errorf("recorder: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// SaveTrade converts a fully closed position into its durable record. The
// position must be terminal; ownership transfers here and it is never
// mutated again.
func (s *Store) SaveTrade(ctx context.Context, p *position.Position) (ClosedTrade, error) {
	if p == nil {
		return ClosedTrade{}, fmt.Errorf("recorder: nil position")
	}
	if p.Status() != position.StatusClosed {
		return ClosedTrade{}, fmt.Errorf("recorder: position %s is not closed", p.ID)
	}
	partials := p.Partials()
	history, err := json.Marshal(partials)
	if err != nil {
		return ClosedTrade{}, fmt.Errorf("recorder: encode history: %w", err)
	}
	exitPrice := 0.0
	if len(partials) > 0 {
		exitPrice = partials[len(partials)-1].ExitPrice
	}
	pnl := p.RealizedPnL()
	notional := p.EntryPrice * p.OriginalQty
	pnlPct := 0.0
	if notional > 0 {
		pnlPct = pnl / notional * 100
	}
	rec := ClosedTrade{
		TradeID:        p.ID,
		Symbol:         p.Symbol,
		Strategy:       p.Strategy,
		Side:           string(p.Side),
		EntryPrice:     p.EntryPrice,
		ExitPrice:      exitPrice,
		Quantity:       p.OriginalQty,
		FeesTotal:      p.FeesTotal(),
		RealizedPnL:    pnl,
		RealizedPnLPct: pnlPct,
		CloseReason:    string(p.Reason()),
		History:        history,
		OpenedAt:       p.OpenedAt,
		ClosedAt:       p.ClosedAt(),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return ClosedTrade{}, fmt.Errorf("recorder: save trade: %w", err)
	}
	return rec, nil
}

// RecentTrades returns up to limit trades, newest first.
func (s *Store) RecentTrades(ctx context.Context, limit int) ([]ClosedTrade, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []ClosedTrade
	err := s.db.WithContext(ctx).
		Order("closed_at DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("recorder: recent trades: %w", err)
	}
	return out, nil
}

// Stats aggregates the full history.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.WithContext(ctx).Model(&ClosedTrade{}).
		Select("COUNT(*) AS trades, " +
			"SUM(CASE WHEN realized_pn_l > 0 THEN 1 ELSE 0 END) AS wins, " +
			"SUM(CASE WHEN realized_pn_l <= 0 THEN 1 ELSE 0 END) AS losses, " +
			"COALESCE(SUM(realized_pn_l), 0) AS total_pn_l, " +
			"COALESCE(SUM(fees_total), 0) AS total_fees").
		Row()
	if err := row.Scan(&stats.Trades, &stats.Wins, &stats.Losses, &stats.TotalPnL, &stats.TotalFees); err != nil {
		return Stats{}, fmt.Errorf("recorder: stats: %w", err)
	}
	if stats.Trades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Trades) * 100
	}
	return stats, nil
}

// EquitySeries returns the cumulative realized PnL in close order.
func (s *Store) EquitySeries(ctx context.Context) ([]EquityPoint, error) {
	var trades []ClosedTrade
	err := s.db.WithContext(ctx).
		Select("closed_at", "realized_pn_l").
		Order("closed_at ASC").Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("recorder: equity series: %w", err)
	}
	out := make([]EquityPoint, 0, len(trades))
	cum := 0.0
	for _, t := range trades {
		cum += t.RealizedPnL
		out = append(out, EquityPoint{At: t.ClosedAt, CumPnL: cum})
	}
	return out, nil
}
