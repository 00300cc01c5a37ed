package config

import "strings"

// 默认值常量
const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppHTTPAddr  = ":9982"
	defaultAppStatePath = "data/bot_state.json"

	defaultMarketName     = "binance"
	defaultMarketCacheTTL = 2000
	defaultMarketTimeout  = 5

	defaultTradingMarketType   = "spot"
	defaultTradingScanInterval = 30
	defaultTradingCapital      = 10000

	defaultRiskMaxPositions = 5
	defaultRiskDailyTrades  = 20
	defaultRiskDailyLoss    = 2.0
	defaultRiskDrawdown     = 5.0
	defaultRiskBaseSizePct  = 1.0
	defaultRiskMinUSD       = 10.0
	defaultRiskMaxUSD       = 200.0

	defaultMonitorIntervalMS   = 1000
	defaultMonitorPriceTimeout = 2000
	defaultMonitorMinNetProfit = 0.30
	defaultMonitorBEBuffer     = 0.05
	defaultMonitorAlertN       = 3

	defaultRecorderDBPath = "data/trades.db"
)

type keySet map[string]struct{}

func (k keySet) mark(key string) {
	k[strings.ToLower(key)] = struct{}{}
}

func (k keySet) has(key string) bool {
	_, ok := k[strings.ToLower(key)]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defaults ...fieldDefault) {
	for _, d := range defaults {
		if keys.has(d.key) {
			continue
		}
		if d.need == nil || d.need() {
			d.apply()
		}
	}
}

func stringFieldDefault(key string, target *string, value string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = value },
	}
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Monitor.applyDefaults(keys)
	c.Strategies.applyDefaults(keys)
	c.Recorder.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.state_path", &a.StatePath, defaultAppStatePath),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.name", &m.Name, defaultMarketName),
		fieldDefault{
			key:   "market.cache_ttl_ms",
			need:  func() bool { return m.CacheTTLMS <= 0 },
			apply: func() { m.CacheTTLMS = defaultMarketCacheTTL },
		},
		fieldDefault{
			key:   "market.request_timeout_seconds",
			need:  func() bool { return m.RequestTimeout <= 0 },
			apply: func() { m.RequestTimeout = defaultMarketTimeout },
		},
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("trading.market_type", &t.MarketType, defaultTradingMarketType),
		fieldDefault{
			key:   "trading.paper_trading",
			need:  func() bool { return true },
			apply: func() { t.PaperTrading = true },
		},
		fieldDefault{
			key:   "trading.scan_interval_seconds",
			need:  func() bool { return t.ScanInterval <= 0 },
			apply: func() { t.ScanInterval = defaultTradingScanInterval },
		},
		fieldDefault{
			key:   "trading.initial_capital",
			need:  func() bool { return t.InitialCapital <= 0 },
			apply: func() { t.InitialCapital = defaultTradingCapital },
		},
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "risk.max_total_positions",
			need:  func() bool { return r.MaxTotalPositions <= 0 },
			apply: func() { r.MaxTotalPositions = defaultRiskMaxPositions },
		},
		fieldDefault{
			key:   "risk.max_daily_trades",
			need:  func() bool { return r.MaxDailyTrades <= 0 },
			apply: func() { r.MaxDailyTrades = defaultRiskDailyTrades },
		},
		fieldDefault{
			key:   "risk.max_daily_loss_pct",
			need:  func() bool { return r.MaxDailyLossPct <= 0 },
			apply: func() { r.MaxDailyLossPct = defaultRiskDailyLoss },
		},
		fieldDefault{
			key:   "risk.max_drawdown_pct",
			need:  func() bool { return r.MaxDrawdownPct <= 0 },
			apply: func() { r.MaxDrawdownPct = defaultRiskDrawdown },
		},
		fieldDefault{
			key:   "risk.base_position_size_pct",
			need:  func() bool { return r.BasePositionSizePct <= 0 },
			apply: func() { r.BasePositionSizePct = defaultRiskBaseSizePct },
		},
		fieldDefault{
			key:   "risk.min_position_size_usd",
			need:  func() bool { return r.MinPositionUSD <= 0 },
			apply: func() { r.MinPositionUSD = defaultRiskMinUSD },
		},
		fieldDefault{
			key:   "risk.max_position_size_usd",
			need:  func() bool { return r.MaxPositionUSD <= 0 },
			apply: func() { r.MaxPositionUSD = defaultRiskMaxUSD },
		},
	)
}

func (m *MonitorConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "monitor.interval_ms",
			need:  func() bool { return m.IntervalMS <= 0 },
			apply: func() { m.IntervalMS = defaultMonitorIntervalMS },
		},
		fieldDefault{
			key:   "monitor.price_timeout_ms",
			need:  func() bool { return m.PriceTimeoutMS <= 0 },
			apply: func() { m.PriceTimeoutMS = defaultMonitorPriceTimeout },
		},
		fieldDefault{
			key:   "monitor.min_net_profit_pct",
			need:  func() bool { return m.MinNetProfitPct <= 0 },
			apply: func() { m.MinNetProfitPct = defaultMonitorMinNetProfit },
		},
		fieldDefault{
			key:   "monitor.breakeven_buffer_pct",
			need:  func() bool { return m.BreakevenBufferPct <= 0 },
			apply: func() { m.BreakevenBufferPct = defaultMonitorBEBuffer },
		},
		fieldDefault{
			key:   "monitor.order_fail_alert_threshold",
			need:  func() bool { return m.OrderFailAlertN <= 0 },
			apply: func() { m.OrderFailAlertN = defaultMonitorAlertN },
		},
	)
}

func (s *StrategiesConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	s.MicroScalp.applyDefaults(keys, "strategies.micro_scalp", StrategyConfig{
		Enabled: true, ConfidenceThreshold: 25, StopLossPct: 0.20, TakeProfitPct: 0.50, MaxHoldMinutes: 30,
	})
	s.Scalping.applyDefaults(keys, "strategies.scalping", StrategyConfig{
		Enabled: true, ConfidenceThreshold: 65, StopLossPct: 0.50, TakeProfitPct: 0.80, MaxHoldMinutes: 30,
	})
	s.DayTrading.applyDefaults(keys, "strategies.day_trading", StrategyConfig{
		Enabled: true, ConfidenceThreshold: 60, StopLossPct: 0.70, TakeProfitPct: 1.20, MaxHoldMinutes: 240,
	})
	s.Momentum.applyDefaults(keys, "strategies.momentum", StrategyConfig{
		Enabled: true, ConfidenceThreshold: 70, StopLossPct: 1.00, TakeProfitPct: 2.00, MaxHoldMinutes: 480,
	})
}

func (s *StrategyConfig) applyDefaults(keys keySet, prefix string, def StrategyConfig) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   prefix + ".enabled",
			need:  func() bool { return true },
			apply: func() { s.Enabled = def.Enabled },
		},
		fieldDefault{
			key:   prefix + ".confidence_threshold",
			need:  func() bool { return s.ConfidenceThreshold <= 0 },
			apply: func() { s.ConfidenceThreshold = def.ConfidenceThreshold },
		},
		fieldDefault{
			key:   prefix + ".stop_loss_pct",
			need:  func() bool { return s.StopLossPct <= 0 },
			apply: func() { s.StopLossPct = def.StopLossPct },
		},
		fieldDefault{
			key:   prefix + ".take_profit_pct",
			need:  func() bool { return s.TakeProfitPct <= 0 },
			apply: func() { s.TakeProfitPct = def.TakeProfitPct },
		},
		fieldDefault{
			key:   prefix + ".max_hold_minutes",
			need:  func() bool { return s.MaxHoldMinutes <= 0 },
			apply: func() { s.MaxHoldMinutes = def.MaxHoldMinutes },
		},
	)
}

func (r *RecorderConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("recorder.db_path", &r.DBPath, defaultRecorderDBPath),
	)
}
