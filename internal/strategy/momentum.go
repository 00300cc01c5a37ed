package strategy

import (
	"sentra/internal/config"
	"sentra/internal/indicator"
	"sentra/internal/types"
)

// Momentum rides sustained directional moves where the 3-bar and 10-bar
// momentum agree and MACD confirms.
type Momentum struct {
	cfg config.StrategyConfig
}

func NewMomentum(cfg config.StrategyConfig) *Momentum { return &Momentum{cfg: cfg} }

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Evaluate(snap indicator.Snapshot, _ float64, _ Regime) *Signal {
	if snap.VolumeRatio < 1.2 {
		return nil
	}

	if snap.Momentum3 > 0.55 && snap.Momentum10 > 0.35 && snap.MACDHist > 0 && snap.RSI < 68 {
		// Short-term momentum must carry at least 80% of the longer move.
		if snap.Momentum3 >= snap.Momentum10*0.8 {
			if c := confidence(snap, types.Long, 22); c >= s.cfg.ConfidenceThreshold {
				return s.signal(types.Long, c, "momentum uptrend")
			}
		}
	}
	if snap.Momentum3 < -0.55 && snap.Momentum10 < -0.35 && snap.MACDHist < 0 && snap.RSI > 32 {
		if snap.Momentum3 <= snap.Momentum10*0.8 {
			if c := confidence(snap, types.Short, 22); c >= s.cfg.ConfidenceThreshold {
				return s.signal(types.Short, c, "momentum downtrend")
			}
		}
	}
	return nil
}

func (s *Momentum) signal(side types.Side, conf float64, reason string) *Signal {
	return &Signal{
		Side:          side,
		Confidence:    conf,
		StopLossPct:   s.cfg.StopLossPct,
		TakeProfitPct: s.cfg.TakeProfitPct,
		Reason:        reason,
	}
}
