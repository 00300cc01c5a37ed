package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sentra/internal/broker"
	"sentra/internal/config"
	"sentra/internal/costs"
	"sentra/internal/logger"
	"sentra/internal/market"
	"sentra/internal/notifier"
	"sentra/internal/position"
	"sentra/internal/recorder"
	"sentra/internal/types"
)

// TradeSink persists a fully closed position. The sqlite store implements it;
// tests plug a stub.
type TradeSink interface {
	SaveTrade(ctx context.Context, p *position.Position) (recorder.ClosedTrade, error)
}

// MaxHoldFunc maps a strategy name to its holding limit; zero disables the
// time-limit exit for that strategy.
type MaxHoldFunc func(strategy string) time.Duration

// Params wires the monitor's collaborators.
type Params struct {
	Cfg      config.MonitorConfig
	Source   market.Source
	Broker   broker.Broker
	Model    *costs.Model
	Registry *position.Registry
	Trades   TradeSink
	Notify   notifier.TextNotifier
	MaxHold  MaxHoldFunc

	// OnClosed fires after a position fully closes and is removed from the
	// registry; the engine uses it for capital accounting and checkpointing.
	OnClosed func(p *position.Position, res position.ClosureResult)
}

// Monitor 是实时出场引擎：按固定节奏巡检所有在场仓位，依次检查
// 止损、止盈、保本加码、持仓时限，命中即下单平仓。
type Monitor struct {
	cfg      config.MonitorConfig
	source   market.Source
	broker   broker.Broker
	model    *costs.Model
	registry *position.Registry
	trades   TradeSink
	notify   notifier.TextNotifier
	maxHold  MaxHoldFunc
	onClosed func(p *position.Position, res position.ClosureResult)

	failMu    sync.Mutex
	orderFail map[position.Key]int

	// One evaluation lock per slot: the engine's backup sweep and the timer
	// loop may tick concurrently, and read-evaluate-close must not interleave
	// for the same position.
	slotMu sync.Mutex
	slots  map[position.Key]*sync.Mutex
}

func New(p Params) *Monitor {
	notify := p.Notify
	if notify == nil {
		notify = notifier.Noop{}
	}
	maxHold := p.MaxHold
	if maxHold == nil {
		maxHold = func(string) time.Duration { return 0 }
	}
	return &Monitor{
		cfg:       p.Cfg,
		source:    p.Source,
		broker:    p.Broker,
		model:     p.Model,
		registry:  p.Registry,
		trades:    p.Trades,
		notify:    notify,
		maxHold:   maxHold,
		onClosed:  p.OnClosed,
		orderFail: make(map[position.Key]int),
		slots:     make(map[position.Key]*sync.Mutex),
	}
}

// Run ticks until ctx is cancelled. A tick already in flight finishes before
// Run returns; close orders are never abandoned halfway.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.cfg.Interval()
	if interval <= 0 {
		interval = time.Second
	}
	logger.Infof("monitor: running, interval=%s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("monitor: stopped")
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick checks every open position once. Exported so the engine can force a
// backup sweep on its own schedule.
func (m *Monitor) Tick(ctx context.Context) {
	for _, pos := range m.registry.OpenSnapshot() {
		m.checkPosition(ctx, pos)
	}
}

// checkPosition isolates one position: a panic or error here never takes the
// loop or the sibling positions down. The whole read-evaluate-close sequence
// runs under the slot's evaluation lock; an overlapping tick waits and then
// re-reads the ledger, so a trigger fires at most once.
func (m *Monitor) checkPosition(ctx context.Context, pos *position.Position) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("monitor: panic checking %s/%s: %v", pos.Symbol, pos.Strategy, r)
		}
	}()

	lock := m.slotLock(position.NewKey(pos.Symbol, pos.Strategy))
	lock.Lock()
	defer lock.Unlock()

	priceCtx, cancel := context.WithTimeout(ctx, m.cfg.PriceTimeout())
	price, err := m.source.CurrentPrice(priceCtx, pos.Symbol)
	cancel()
	if err != nil {
		// No trustworthy price, no exit decision. Skip until the next tick.
		logger.Warnf("monitor: no price for %s, skipping: %v", pos.Symbol, err)
		return
	}

	dec := m.decide(pos, price, time.Now())
	if dec == nil {
		return
	}
	m.executeClose(ctx, pos, price, *dec)
}

// slotLock returns the evaluation lock for key, creating it on first use.
// Slots are never dropped; the map is bounded by symbols × strategies.
func (m *Monitor) slotLock(key position.Key) *sync.Mutex {
	m.slotMu.Lock()
	defer m.slotMu.Unlock()
	lock, ok := m.slots[key]
	if !ok {
		lock = &sync.Mutex{}
		m.slots[key] = lock
	}
	return lock
}

// decision is one resolved exit: how much to close and why.
type decision struct {
	reason   position.CloseReason
	fraction float64 // of the remaining quantity, 1 = full close
}

// decide applies the exit rules in strict precedence: stop-loss, then
// take-profit, then breakeven-plus, then the holding time limit. On a price
// gap that crosses both levels the stop wins.
func (m *Monitor) decide(pos *position.Position, price float64, now time.Time) *decision {
	if stopHit(pos.Side, price, pos.StopLoss) {
		return &decision{reason: position.ReasonStopLoss, fraction: 1}
	}
	if targetHit(pos.Side, price, pos.TakeProfit) {
		return &decision{reason: position.ReasonTakeProfit, fraction: 1}
	}

	gross := pos.GrossMovePct(price)
	roundTrip := m.model.RoundTripCostPct(pos.Symbol)
	if breakevenEligible(pos, gross, roundTrip, m.cfg.MinNetProfitPct) {
		f := breakevenFraction(gross, roundTrip+m.cfg.BreakevenBufferPct)
		if f > 0 {
			return &decision{reason: position.ReasonBreakevenPlus, fraction: f}
		}
	}

	if limit := m.maxHold(pos.Strategy); limit > 0 && now.Sub(pos.OpenedAt) >= limit {
		return &decision{reason: position.ReasonTimeLimit, fraction: 1}
	}
	return nil
}

func stopHit(side types.Side, price, stop float64) bool {
	if side == types.Short {
		return price >= stop
	}
	return price <= stop
}

func targetHit(side types.Side, price, target float64) bool {
	if side == types.Short {
		return price <= target
	}
	return price >= target
}

func (m *Monitor) executeClose(ctx context.Context, pos *position.Position, price float64, dec decision) {
	key := position.NewKey(pos.Symbol, pos.Strategy)
	remaining := pos.RemainingQty()
	if remaining <= 0 {
		m.registry.Remove(key)
		return
	}
	qty := remaining
	if dec.fraction < 1 {
		qty = remaining * dec.fraction
	}

	exitQuote, err := m.model.QuoteExit(pos.Symbol, pos.Side, price, qty, 0)
	if err != nil {
		logger.Errorf("monitor: exit quote %s: %v", key, err)
		return
	}
	orderSide := broker.Sell
	if pos.Side == types.Short {
		orderSide = broker.Buy
	}
	fill, err := m.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:   pos.Symbol,
		Side:     orderSide,
		Quantity: qty,
		Type:     broker.Market,
		Quote:    exitQuote,
	})
	if err != nil {
		m.recordOrderFailure(key, pos, dec.reason, err)
		return
	}
	m.resetOrderFailures(key)

	// The confirmed fill wins over the estimate; the fee is re-priced on the
	// actual notional. For the paper broker both are identical.
	finalQuote := costs.Quote{
		AdjustedPrice: fill.Price,
		Fee:           m.model.Fees().ExitFee(fill.Price * fill.Quantity),
		SlippagePct:   exitQuote.SlippagePct,
		SpreadPct:     exitQuote.SpreadPct,
	}
	res, err := pos.ClosePartial(fill.Quantity, finalQuote, dec.reason)
	if err != nil {
		if errors.Is(err, position.ErrAlreadyClosed) {
			// Lost a close race; the winner handles persistence.
			m.registry.Remove(key)
			return
		}
		logger.Errorf("monitor: close ledger %s: %v", key, err)
		return
	}
	if dec.reason == position.ReasonBreakevenPlus {
		pos.MarkBreakevenDone()
	}
	logger.Infof("monitor: %s closed %.8f/%.8f of %s @ %.6f pnl=%.4f reason=%s",
		pos.Side, res.ClosedQty, pos.OriginalQty, key, res.ExitPrice, res.RealizedPnL, res.Reason)

	if !res.FullClose {
		return
	}
	m.finishClose(ctx, key, pos, res)
}

func (m *Monitor) finishClose(ctx context.Context, key position.Key, pos *position.Position, res position.ClosureResult) {
	if m.trades != nil {
		if _, err := m.trades.SaveTrade(ctx, pos); err != nil {
			// The position is already closed on the exchange; losing the
			// record is bad but must not keep the slot occupied.
			logger.Errorf("monitor: persist trade %s: %v", key, err)
		}
	}
	m.registry.Remove(key)
	m.resetOrderFailures(key)
	if m.onClosed != nil {
		m.onClosed(pos, res)
	}
	m.notify.SendText(fmt.Sprintf("*%s* %s closed (%s)\npnl: %.4f USDT, fees: %.4f",
		key, pos.Side, res.Reason, res.TotalPnL, pos.FeesTotal()))
}

// recordOrderFailure keeps the position open for retry and alerts once the
// same position fails too many ticks in a row.
func (m *Monitor) recordOrderFailure(key position.Key, pos *position.Position, reason position.CloseReason, err error) {
	pos.SetLastError(err.Error())
	m.failMu.Lock()
	m.orderFail[key]++
	n := m.orderFail[key]
	m.failMu.Unlock()
	logger.Errorf("monitor: close order %s (%s) failed (%d consecutive): %v", key, reason, n, err)
	if m.cfg.OrderFailAlertN > 0 && n == m.cfg.OrderFailAlertN {
		m.notify.SendText(fmt.Sprintf("⚠️ close order for *%s* failed %d times in a row: %v", key, n, err))
	}
}

func (m *Monitor) resetOrderFailures(key position.Key) {
	m.failMu.Lock()
	delete(m.orderFail, key)
	m.failMu.Unlock()
}
