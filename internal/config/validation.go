package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。费率/成本类错误在启动期即失败。
func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Costs.validate(); err != nil {
		return err
	}
	if err := c.Monitor.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TradingConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(t.MarketType)) {
	case "spot", "futures":
	default:
		return fmt.Errorf("trading.market_type must be spot or futures, got %q", t.MarketType)
	}
	if len(t.Symbols) == 0 {
		return fmt.Errorf("trading.symbols requires at least one symbol")
	}
	for _, s := range t.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("trading.symbols contains an empty symbol")
		}
	}
	if t.InitialCapital <= 0 {
		return fmt.Errorf("trading.initial_capital must be > 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if strings.ToLower(strings.TrimSpace(m.Name)) != "binance" {
		return fmt.Errorf("market.name: only binance is supported, got %q", m.Name)
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.MaxTotalPositions <= 0 {
		return fmt.Errorf("risk.max_total_positions must be > 0")
	}
	if r.MinPositionUSD > r.MaxPositionUSD {
		return fmt.Errorf("risk.min_position_size_usd (%.2f) exceeds max_position_size_usd (%.2f)",
			r.MinPositionUSD, r.MaxPositionUSD)
	}
	return nil
}

func (c *CostsConfig) validate() error {
	if c.MakerFeePct < 0 || c.MakerFeePct > 1 {
		return fmt.Errorf("costs.maker_fee_pct out of range: %f", c.MakerFeePct)
	}
	if c.TakerFeePct < 0 || c.TakerFeePct > 1 {
		return fmt.Errorf("costs.taker_fee_pct out of range: %f", c.TakerFeePct)
	}
	return nil
}

func (m *MonitorConfig) validate() error {
	if m.IntervalMS < 100 {
		return fmt.Errorf("monitor.interval_ms must be >= 100, got %d", m.IntervalMS)
	}
	if m.MinNetProfitPct < 0 {
		return fmt.Errorf("monitor.min_net_profit_pct must be >= 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if !n.Telegram.Enabled {
		return nil
	}
	if strings.TrimSpace(n.Telegram.BotToken) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
		return fmt.Errorf("notify.telegram enabled but bot_token/chat_id missing")
	}
	return nil
}
