package engine

import (
	"context"
	"fmt"
	"time"

	"sentra/internal/broker"
	"sentra/internal/config"
	"sentra/internal/costs"
	"sentra/internal/indicator"
	"sentra/internal/logger"
	"sentra/internal/market"
	"sentra/internal/notifier"
	"sentra/internal/position"
	"sentra/internal/risk"
	"sentra/internal/strategy"
	"sentra/internal/types"
)

// Candle history fetched per scan; enough for the slowest indicator plus a
// volume baseline.
const (
	scanInterval = "1m"
	scanCandles  = 120
)

// Params wires the engine's collaborators.
type Params struct {
	Trading    config.TradingConfig
	Strategies []strategy.Strategy
	Source     market.Source
	Broker     broker.Broker
	Model      *costs.Model
	Registry   *position.Registry
	Risk       *risk.Manager
	Notify     notifier.TextNotifier

	// Backup runs once per scan after the entry pass; the exit monitor's
	// Tick is plugged in here so stuck positions get swept even if the
	// fast loop ever stalls.
	Backup func(ctx context.Context)
}

// Engine 是进场引擎：按扫描周期逐标的计算指标，跑一遍所有启用的
// 策略，命中信号即经风控开仓。出场完全交给 monitor。
type Engine struct {
	cfg        config.TradingConfig
	strategies []strategy.Strategy
	source     market.Source
	broker     broker.Broker
	model      *costs.Model
	registry   *position.Registry
	risk       *risk.Manager
	notify     notifier.TextNotifier
	backup     func(ctx context.Context)
}

func New(p Params) *Engine {
	notify := p.Notify
	if notify == nil {
		notify = notifier.Noop{}
	}
	return &Engine{
		cfg:        p.Trading,
		strategies: p.Strategies,
		source:     p.Source,
		broker:     p.Broker,
		model:      p.Model,
		registry:   p.Registry,
		risk:       p.Risk,
		notify:     notify,
		backup:     p.Backup,
	}
}

// Run scans until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(e.cfg.ScanInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger.Infof("engine: scanning %d symbols every %s, %d strategies", len(e.cfg.Symbols), interval, len(e.strategies))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("engine: stopped")
			return ctx.Err()
		case <-ticker.C:
			e.scan(ctx)
			if e.backup != nil {
				e.backup(ctx)
			}
		}
	}
}

func (e *Engine) scan(ctx context.Context) {
	for _, symbol := range e.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return
		}
		e.scanSymbol(ctx, symbol)
	}
}

// scanSymbol isolates one symbol; a bad feed or a panicking strategy must not
// stop the rest of the scan.
func (e *Engine) scanSymbol(ctx context.Context, symbol string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("engine: panic scanning %s: %v", symbol, r)
		}
	}()

	candles, err := e.source.Candles(ctx, symbol, scanInterval, scanCandles)
	if err != nil {
		logger.Warnf("engine: candles %s: %v", symbol, err)
		return
	}
	snap, err := indicator.Compute(candles)
	if err != nil {
		logger.Debugf("engine: indicators %s: %v", symbol, err)
		return
	}
	price, err := e.source.CurrentPrice(ctx, symbol)
	if err != nil {
		logger.Warnf("engine: price %s: %v", symbol, err)
		return
	}
	regime := strategy.DetectRegime(snap)

	for _, strat := range e.strategies {
		if e.registry.Has(symbol, strat.Name()) {
			continue
		}
		sig := strat.Evaluate(snap, price, regime)
		if sig == nil {
			continue
		}
		if err := e.open(ctx, symbol, strat.Name(), price, snap.Volatility(), sig); err != nil {
			logger.Warnf("engine: open %s/%s: %v", symbol, strat.Name(), err)
		}
	}
}

// open quotes the entry, sizes the position, and runs the order plus ledger
// insert through the registry's atomic open path.
func (e *Engine) open(ctx context.Context, symbol, stratName string, price, volatility float64, sig *strategy.Signal) error {
	// A target below what the round trip costs would lose money on every
	// winner; raise it to the symbol's floor.
	takeProfitPct := sig.TakeProfitPct
	if minTP := e.model.MinimumTakeProfitPct(symbol); takeProfitPct < minTP {
		logger.Debugf("engine: %s take-profit %.3f%% below floor, raising to %.3f%%", symbol, takeProfitPct, minTP)
		takeProfitPct = minTP
	}

	qty := e.risk.PositionSize(price, sig.Confidence)
	if qty <= 0 {
		return fmt.Errorf("position size is zero at price %.6f", price)
	}
	entryQuote, err := e.model.QuoteEntry(symbol, sig.Side, price, qty, volatility)
	if err != nil {
		return err
	}

	key := position.NewKey(symbol, stratName)
	pos, err := e.registry.TryOpen(key, e.risk.CanOpen, func() (*position.Position, error) {
		orderSide := broker.Buy
		if sig.Side == types.Short {
			orderSide = broker.Sell
		}
		fill, err := e.broker.PlaceOrder(ctx, broker.OrderRequest{
			Symbol:   symbol,
			Side:     orderSide,
			Quantity: qty,
			Type:     broker.Market,
			Quote:    entryQuote,
		})
		if err != nil {
			return nil, err
		}
		finalQuote := costs.Quote{
			AdjustedPrice: fill.Price,
			Fee:           e.model.Fees().EntryFee(fill.Price * fill.Quantity),
			SlippagePct:   entryQuote.SlippagePct,
			SpreadPct:     entryQuote.SpreadPct,
		}
		return position.Open(position.OpenParams{
			Symbol:        symbol,
			Strategy:      stratName,
			Side:          sig.Side,
			Quantity:      fill.Quantity,
			EntryQuote:    finalQuote,
			StopLossPct:   sig.StopLossPct,
			TakeProfitPct: takeProfitPct,
		})
	})
	if err != nil {
		return err
	}
	e.notify.SendText(fmt.Sprintf("*%s* %s opened by %s\nentry: %.6f, qty: %.8f\nstop: %.6f, target: %.6f\n%s (conf %.0f%%)",
		key, pos.Side, stratName, pos.EntryPrice, pos.OriginalQty, pos.StopLoss, pos.TakeProfit, sig.Reason, sig.Confidence))
	return nil
}
