package config

import "time"

// Config 是 Sentra 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app"`
	Market     MarketConfig     `toml:"market"`
	Trading    TradingConfig    `toml:"trading"`
	Risk       RiskConfig       `toml:"risk"`
	Costs      CostsConfig      `toml:"costs"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Strategies StrategiesConfig `toml:"strategies"`
	Recorder   RecorderConfig   `toml:"recorder"`
	Notify     NotifyConfig     `toml:"notify"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	HTTPAddr  string `toml:"http_addr"`
	StatePath string `toml:"state_path"`
}

type MarketConfig struct {
	Name           string `toml:"name"`
	APIKey         string `toml:"api_key"`
	SecretKey      string `toml:"secret_key"`
	Testnet        bool   `toml:"testnet"`
	CacheTTLMS     int    `toml:"cache_ttl_ms"`
	RequestTimeout int    `toml:"request_timeout_seconds"`
}

// TradingConfig 控制模拟/实盘模式与扫描节奏。
type TradingConfig struct {
	PaperTrading   bool     `toml:"paper_trading"`
	MarketType     string   `toml:"market_type"` // "spot" | "futures"
	UseMakerOrders bool     `toml:"use_maker_orders"`
	Symbols        []string `toml:"symbols"`
	ScanInterval   int      `toml:"scan_interval_seconds"`
	InitialCapital float64  `toml:"initial_capital"`
}

type RiskConfig struct {
	MaxTotalPositions   int     `toml:"max_total_positions"`
	MaxDailyTrades      int     `toml:"max_daily_trades"`
	MaxDailyLossPct     float64 `toml:"max_daily_loss_pct"`
	MaxDrawdownPct      float64 `toml:"max_drawdown_pct"`
	BasePositionSizePct float64 `toml:"base_position_size_pct"`
	MinPositionUSD      float64 `toml:"min_position_size_usd"`
	MaxPositionUSD      float64 `toml:"max_position_size_usd"`
}

// CostsConfig 覆盖费率与滑点/点差表路径。
type CostsConfig struct {
	MakerFeePct float64 `toml:"maker_fee_pct"`
	TakerFeePct float64 `toml:"taker_fee_pct"`
	TablePath   string  `toml:"table_path"`
}

type MonitorConfig struct {
	IntervalMS         int     `toml:"interval_ms"`
	PriceTimeoutMS     int     `toml:"price_timeout_ms"`
	MinNetProfitPct    float64 `toml:"min_net_profit_pct"`
	BreakevenBufferPct float64 `toml:"breakeven_buffer_pct"`
	OrderFailAlertN    int     `toml:"order_fail_alert_threshold"`
}

func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalMS) * time.Millisecond
}

func (m MonitorConfig) PriceTimeout() time.Duration {
	return time.Duration(m.PriceTimeoutMS) * time.Millisecond
}

type StrategyConfig struct {
	Enabled             bool    `toml:"enabled"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	StopLossPct         float64 `toml:"stop_loss_pct"`
	TakeProfitPct       float64 `toml:"take_profit_pct"`
	MaxHoldMinutes      int     `toml:"max_hold_minutes"`
}

func (s StrategyConfig) MaxHold() time.Duration {
	return time.Duration(s.MaxHoldMinutes) * time.Minute
}

type StrategiesConfig struct {
	MicroScalp StrategyConfig `toml:"micro_scalp"`
	Scalping   StrategyConfig `toml:"scalping"`
	DayTrading StrategyConfig `toml:"day_trading"`
	Momentum   StrategyConfig `toml:"momentum"`
}

type RecorderConfig struct {
	DBPath string `toml:"db_path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}
