package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentra/internal/broker"
	"sentra/internal/config"
	"sentra/internal/costs"
	"sentra/internal/engine"
	"sentra/internal/logger"
	"sentra/internal/market"
	"sentra/internal/monitor"
	"sentra/internal/notifier"
	"sentra/internal/pkg/circuit"
	"sentra/internal/position"
	"sentra/internal/recorder"
	"sentra/internal/risk"
	"sentra/internal/state"
	"sentra/internal/strategy"
	apihttp "sentra/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：配置→依赖装配→进场引擎、出场监控与 HTTP 三线并跑。
type App struct {
	cfg      *config.Config
	engine   *engine.Engine
	monitor  *monitor.Monitor
	httpSrv  *apihttp.Server
	registry *position.Registry
	risk     *risk.Manager
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	fees, err := costs.NewFeeSchedule(costs.MarketType(cfg.Trading.MarketType),
		cfg.Trading.UseMakerOrders, cfg.Costs.MakerFeePct, cfg.Costs.TakerFeePct)
	if err != nil {
		return nil, err
	}
	tables, err := costs.NewTableRegistry(cfg.Costs.TablePath)
	if err != nil {
		return nil, fmt.Errorf("cost table: %w", err)
	}
	model := costs.NewModel(fees, tables)

	source := market.NewBinanceSource(market.BinanceParams{
		APIKey:    cfg.Market.APIKey,
		SecretKey: cfg.Market.SecretKey,
		Testnet:   cfg.Market.Testnet,
		CacheTTL:  time.Duration(cfg.Market.CacheTTLMS) * time.Millisecond,
		Timeout:   time.Duration(cfg.Market.RequestTimeout) * time.Second,
	})

	var notify notifier.TextNotifier = notifier.Noop{}
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	var exec broker.Broker
	if cfg.Trading.PaperTrading {
		exec = broker.NewPaperBroker()
		logger.Infof("app: paper trading, fills priced by the cost model")
	} else {
		live := broker.NewLiveBroker(broker.LiveParams{
			APIKey:    cfg.Market.APIKey,
			SecretKey: cfg.Market.SecretKey,
			Testnet:   cfg.Market.Testnet,
		})
		live.Breaker().OnStateChange(func(name string, from, to circuit.State) {
			logger.Warnf("app: breaker %s %s -> %s", name, from, to)
			if to == circuit.StateOpen {
				notify.SendText(fmt.Sprintf("⚠️ order breaker *%s* opened", name))
			}
		})
		exec = live
	}

	riskMgr := risk.NewManager(cfg.Risk, cfg.Trading.InitialCapital)
	if cp, ok, err := state.Load(cfg.App.StatePath); err != nil {
		logger.Warnf("app: checkpoint unreadable, starting fresh: %v", err)
	} else if ok {
		riskMgr.Restore(cp.InitialCapital, cp.CurrentCapital, cp.DailyPnL)
		logger.Infof("app: capital restored from checkpoint: %.2f (daily pnl %.2f)", cp.CurrentCapital, cp.DailyPnL)
	}

	registry := position.NewRegistry(cfg.Risk.MaxTotalPositions)
	trades, err := recorder.NewStore(cfg.Recorder.DBPath)
	if err != nil {
		return nil, err
	}

	statePath := cfg.App.StatePath
	onClosed := func(p *position.Position, res position.ClosureResult) {
		riskMgr.RecordTrade(res.TotalPnL)
		acct := riskMgr.Account()
		if statePath == "" {
			return
		}
		if err := state.Save(statePath, state.Checkpoint{
			InitialCapital: acct.InitialCapital,
			CurrentCapital: acct.CurrentCapital,
			DailyPnL:       acct.DailyPnL,
		}); err != nil {
			logger.Errorf("app: checkpoint: %v", err)
		}
	}

	mon := monitor.New(monitor.Params{
		Cfg:      cfg.Monitor,
		Source:   source,
		Broker:   exec,
		Model:    model,
		Registry: registry,
		Trades:   trades,
		Notify:   notify,
		MaxHold:  maxHoldFunc(cfg.Strategies),
		OnClosed: onClosed,
	})

	eng := engine.New(engine.Params{
		Trading:    cfg.Trading,
		Strategies: strategy.FromConfig(cfg.Strategies),
		Source:     source,
		Broker:     exec,
		Model:      model,
		Registry:   registry,
		Risk:       riskMgr,
		Notify:     notify,
		Backup:     mon.Tick,
	})

	httpSrv, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Registry: registry,
		Trades:   trades,
		Risk:     riskMgr,
		Source:   source,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		engine:   eng,
		monitor:  mon,
		httpSrv:  httpSrv,
		registry: registry,
		risk:     riskMgr,
	}, nil
}

// Run blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.httpSrv.Start(ctx) })
	group.Go(func() error { return a.monitor.Run(ctx) })
	group.Go(func() error { return a.engine.Run(ctx) })
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func maxHoldFunc(cfg config.StrategiesConfig) monitor.MaxHoldFunc {
	holds := map[string]time.Duration{
		"micro_scalp": cfg.MicroScalp.MaxHold(),
		"scalping":    cfg.Scalping.MaxHold(),
		"day_trading": cfg.DayTrading.MaxHold(),
		"momentum":    cfg.Momentum.MaxHold(),
	}
	return func(strategy string) time.Duration { return holds[strategy] }
}
