package strategy

import (
	"sentra/internal/config"
	"sentra/internal/indicator"
	"sentra/internal/types"
)

// Scalping hunts short oversold bounces and overbought pullbacks on elevated
// volume. It only fires when the market actually moves (ATR filter).
type Scalping struct {
	cfg config.StrategyConfig
}

func NewScalping(cfg config.StrategyConfig) *Scalping { return &Scalping{cfg: cfg} }

func (s *Scalping) Name() string { return "scalping" }

func (s *Scalping) Evaluate(snap indicator.Snapshot, _ float64, _ Regime) *Signal {
	if snap.VolumeRatio < 1.2 || snap.ATRPct < 0.5 {
		return nil
	}

	if snap.RSI < 42 && snap.Momentum3 > 0.12 && snap.MACDHist > -0.002 {
		if c := confidence(snap, types.Long, 20); c >= s.cfg.ConfidenceThreshold {
			return s.signal(types.Long, c, "scalping oversold bounce")
		}
	}
	if snap.RSI > 58 && snap.Momentum3 < -0.12 && snap.MACDHist < 0.002 {
		if c := confidence(snap, types.Short, 20); c >= s.cfg.ConfidenceThreshold {
			return s.signal(types.Short, c, "scalping overbought pullback")
		}
	}
	return nil
}

func (s *Scalping) signal(side types.Side, conf float64, reason string) *Signal {
	return &Signal{
		Side:          side,
		Confidence:    conf,
		StopLossPct:   s.cfg.StopLossPct,
		TakeProfitPct: s.cfg.TakeProfitPct,
		Reason:        reason,
	}
}
