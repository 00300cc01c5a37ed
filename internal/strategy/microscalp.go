package strategy

import (
	"math"

	"sentra/internal/config"
	"sentra/internal/indicator"
	"sentra/internal/types"
)

// MicroScalp 超短线剥头皮：全部过滤器通过才进场（宁缺毋滥），小止损小
// 目标，只做多，快进快出。
type MicroScalp struct {
	cfg config.StrategyConfig
}

func NewMicroScalp(cfg config.StrategyConfig) *MicroScalp { return &MicroScalp{cfg: cfg} }

func (s *MicroScalp) Name() string { return "micro_scalp" }

func (s *MicroScalp) Evaluate(snap indicator.Snapshot, _ float64, _ Regime) *Signal {
	// every filter must pass
	if snap.ATRPct < 0.10 {
		return nil
	}
	if snap.RSI < 30 || snap.RSI > 60 {
		return nil
	}
	if snap.EMA5 <= snap.EMA10 {
		return nil
	}
	if snap.VolumeRatio < 0.8 {
		return nil
	}

	c := s.confidence(snap)
	if c < s.cfg.ConfidenceThreshold {
		return nil
	}
	return &Signal{
		Side:          types.Long,
		Confidence:    c,
		StopLossPct:   s.cfg.StopLossPct,
		TakeProfitPct: s.cfg.TakeProfitPct,
		Reason:        "micro-scalp: all entry filters passed",
	}
}

// confidence rewards RSI neutrality (peak at 50), a genuine volume spike
// and moderate volatility. A below-spike volume still passes the filter but
// drags the score down.
func (s *MicroScalp) confidence(snap indicator.Snapshot) float64 {
	c := 20.0
	if bonus := 10 - math.Abs(snap.RSI-50); bonus > 0 {
		c += bonus
	}
	volBonus := (snap.VolumeRatio - 1.2) * 10
	if volBonus > 10 {
		volBonus = 10
	}
	c += volBonus
	atrBonus := (snap.ATRPct - 0.15) * 20
	if atrBonus > 5 {
		atrBonus = 5
	} else if atrBonus < 0 {
		atrBonus = 0
	}
	c += atrBonus

	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
