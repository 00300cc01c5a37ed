package strategy

import (
	"sentra/internal/config"
	"sentra/internal/indicator"
	"sentra/internal/types"
)

// DayTrading trades with the EMA trend and enters on pullbacks to the outer
// Bollinger band.
type DayTrading struct {
	cfg config.StrategyConfig
}

func NewDayTrading(cfg config.StrategyConfig) *DayTrading { return &DayTrading{cfg: cfg} }

func (s *DayTrading) Name() string { return "day_trading" }

func (s *DayTrading) Evaluate(snap indicator.Snapshot, price float64, _ Regime) *Signal {
	if snap.VolumeRatio < 1.2 {
		return nil
	}

	if snap.EMAFast > snap.EMAMid && snap.MACDHist > 0.001 {
		if snap.RSI < 45 && price <= snap.BBLower*1.015 && snap.Momentum3 > 0 {
			if c := confidence(snap, types.Long, 28); c >= s.cfg.ConfidenceThreshold {
				return s.signal(types.Long, c, "day trading uptrend pullback")
			}
		}
	}
	if snap.EMAFast < snap.EMAMid && snap.MACDHist < -0.001 {
		if snap.RSI > 55 && price >= snap.BBUpper*0.985 && snap.Momentum3 < 0 {
			if c := confidence(snap, types.Short, 28); c >= s.cfg.ConfidenceThreshold {
				return s.signal(types.Short, c, "day trading downtrend rally")
			}
		}
	}
	return nil
}

func (s *DayTrading) signal(side types.Side, conf float64, reason string) *Signal {
	return &Signal{
		Side:          side,
		Confidence:    conf,
		StopLossPct:   s.cfg.StopLossPct,
		TakeProfitPct: s.cfg.TakeProfitPct,
		Reason:        reason,
	}
}
