package risk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"sentra/internal/config"
	"sentra/internal/types"
)

// ErrRejected wraps every risk veto so callers can branch on it.
var ErrRejected = errors.New("risk: rejected")

// Manager 统一管理资金、日内限额与仓位规模。所有方法并发安全。
type Manager struct {
	cfg config.RiskConfig

	mu             sync.Mutex
	initialCapital float64
	currentCapital float64
	peakCapital    float64
	dailyTrades    int
	dailyPnL       float64
	lastResetDate  string
}

func NewManager(cfg config.RiskConfig, initialCapital float64) *Manager {
	return &Manager{
		cfg:            cfg,
		initialCapital: initialCapital,
		currentCapital: initialCapital,
		peakCapital:    initialCapital,
	}
}

// Restore replaces the capital figures from a checkpoint.
func (m *Manager) Restore(initial, current, dailyPnL float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialCapital = initial
	m.currentCapital = current
	if current > m.peakCapital {
		m.peakCapital = current
	}
	m.dailyPnL = dailyPnL
	m.lastResetDate = time.Now().Format("2006-01-02")
}

// RecordTrade folds a closed trade into the counters and capital.
func (m *Manager) RecordTrade(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyLocked()
	m.dailyTrades++
	m.dailyPnL += pnl
	m.currentCapital += pnl
	if m.currentCapital > m.peakCapital {
		m.peakCapital = m.currentCapital
	}
}

// Daily counters roll over at local midnight, lazily on first touch.
func (m *Manager) resetDailyLocked() {
	today := time.Now().Format("2006-01-02")
	if today != m.lastResetDate {
		m.dailyTrades = 0
		m.dailyPnL = 0
		m.lastResetDate = today
	}
}

// CanOpen is the veto consulted inside the registry's open path. openCount is
// the current open-position count under the registry lock.
func (m *Manager) CanOpen(openCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyLocked()

	if openCount >= m.cfg.MaxTotalPositions {
		return fmt.Errorf("%w: max positions %d/%d", ErrRejected, openCount, m.cfg.MaxTotalPositions)
	}
	if m.dailyTrades >= m.cfg.MaxDailyTrades {
		return fmt.Errorf("%w: daily trade limit %d", ErrRejected, m.cfg.MaxDailyTrades)
	}
	if m.initialCapital > 0 {
		lossPct := -m.dailyPnL / m.initialCapital * 100
		if lossPct >= m.cfg.MaxDailyLossPct {
			return fmt.Errorf("%w: daily loss %.2f%% >= %.2f%%", ErrRejected, lossPct, m.cfg.MaxDailyLossPct)
		}
	}
	if m.peakCapital > 0 {
		ddPct := (m.peakCapital - m.currentCapital) / m.peakCapital * 100
		if ddPct >= m.cfg.MaxDrawdownPct {
			return fmt.Errorf("%w: drawdown %.2f%% >= %.2f%%", ErrRejected, ddPct, m.cfg.MaxDrawdownPct)
		}
	}
	return nil
}

// PositionSize converts confidence into a quantity at entryPrice: base size
// percent scaled by confidence, clamped to the USD bounds, then divided by
// price. Returns 0 when the capital cannot fund the minimum position.
func (m *Manager) PositionSize(entryPrice, confidence float64) float64 {
	if entryPrice <= 0 {
		return 0
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	m.mu.Lock()
	capital := m.currentCapital
	m.mu.Unlock()

	sizePct := m.cfg.BasePositionSizePct * confidence / 100
	usd := capital * sizePct / 100
	if usd < m.cfg.MinPositionUSD {
		usd = m.cfg.MinPositionUSD
	}
	if usd > m.cfg.MaxPositionUSD {
		usd = m.cfg.MaxPositionUSD
	}
	if usd > capital {
		return 0
	}
	return usd / entryPrice
}

// Account reports the checkpoint-ready capital snapshot.
func (m *Manager) Account() types.AccountSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.AccountSnapshot{
		InitialCapital: m.initialCapital,
		CurrentCapital: m.currentCapital,
		DailyPnL:       m.dailyPnL,
		UpdatedAt:      time.Now(),
	}
}
