package strategy

import (
	"sentra/internal/config"
	"sentra/internal/indicator"
	"sentra/internal/types"
)

// Regime 表示当前市场状态，由指标快照推导。
type Regime string

const (
	RegimeStrongUptrend   Regime = "STRONG_UPTREND"
	RegimeUptrend         Regime = "UPTREND"
	RegimeStrongDowntrend Regime = "STRONG_DOWNTREND"
	RegimeDowntrend       Regime = "DOWNTREND"
	RegimeHighVolatility  Regime = "HIGH_VOLATILITY"
	RegimeRanging         Regime = "RANGING"
)

// DetectRegime classifies the market from EMA alignment, MACD histogram
// direction and ATR.
func DetectRegime(snap indicator.Snapshot) Regime {
	switch {
	case snap.EMAFast > snap.EMAMid && snap.MACDHist > 0:
		if snap.RSI > 60 {
			return RegimeStrongUptrend
		}
		return RegimeUptrend
	case snap.EMAFast < snap.EMAMid && snap.MACDHist < 0:
		if snap.RSI < 40 {
			return RegimeStrongDowntrend
		}
		return RegimeDowntrend
	case snap.ATRPct > 2.0:
		return RegimeHighVolatility
	default:
		return RegimeRanging
	}
}

// Signal is one actionable entry proposal. Stop and target are percent
// distances from the adjusted entry price.
type Signal struct {
	Side          types.Side
	Confidence    float64
	StopLossPct   float64
	TakeProfitPct float64
	Reason        string
}

// Strategy turns an indicator snapshot into at most one signal. A nil return
// means no trade this scan.
type Strategy interface {
	Name() string
	Evaluate(snap indicator.Snapshot, price float64, regime Regime) *Signal
}

// confidence scores a raw signal 0..100 the way every rule set does: a base
// score plus bonuses for RSI extremity, volume and MACD agreement.
func confidence(snap indicator.Snapshot, side types.Side, base float64) float64 {
	c := base
	if side == types.Long && snap.RSI < 40 {
		c += 10
	} else if side == types.Short && snap.RSI > 60 {
		c += 10
	}
	if snap.VolumeRatio > 1.5 {
		c += 5
	}
	if side == types.Long && snap.MACDHist > 0 {
		c += 5
	} else if side == types.Short && snap.MACDHist < 0 {
		c += 5
	}
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// FromConfig assembles the enabled rule sets in scan order.
func FromConfig(cfg config.StrategiesConfig) []Strategy {
	out := make([]Strategy, 0, 4)
	if cfg.MicroScalp.Enabled {
		out = append(out, NewMicroScalp(cfg.MicroScalp))
	}
	if cfg.Scalping.Enabled {
		out = append(out, NewScalping(cfg.Scalping))
	}
	if cfg.DayTrading.Enabled {
		out = append(out, NewDayTrading(cfg.DayTrading))
	}
	if cfg.Momentum.Enabled {
		out = append(out, NewMomentum(cfg.Momentum))
	}
	return out
}
