package indicator

import (
	"fmt"

	"sentra/internal/market"

	talib "github.com/markcheno/go-talib"
)

// 指标快照：一根最新收盘上的全部技术指标读数，供策略与成本模型共用。

const (
	rsiPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	emaMicro5    = 5
	emaMicro10   = 10
	emaFast      = 9
	emaMid       = 21
	emaSlow      = 50
	bbandsPeriod = 20
	bbandsStdDev = 2.0
	atrPeriod    = 14
	volumeWindow = 20
)

// minCandles is what the slowest indicator needs before every reading is
// populated.
const minCandles = emaSlow + macdSignal

// Snapshot is one point-in-time reading of the indicator set.
type Snapshot struct {
	Close float64

	RSI float64

	MACD       float64
	MACDSignal float64
	MACDHist   float64

	// EMA5/EMA10 是微剥头皮时间尺度上的快慢均线。
	EMA5    float64
	EMA10   float64
	EMAFast float64
	EMAMid  float64
	EMASlow float64

	BBUpper float64
	BBMid   float64
	BBLower float64

	ATR    float64
	ATRPct float64

	// VolumeRatio is last volume over the 20-bar average. Momentum3 and
	// Momentum10 are the percent close-to-close moves over 3 and 10 bars.
	VolumeRatio float64
	Momentum3   float64
	Momentum10  float64
}

// Volatility maps ATR% into [0, 1] for slippage scaling: 0 at a flat market,
// saturating once ATR reaches 5% of price.
func (s Snapshot) Volatility() float64 {
	v := s.ATRPct / 5.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BBWidthPct is the band width relative to the middle band, in percent.
func (s Snapshot) BBWidthPct() float64 {
	if s.BBMid <= 0 {
		return 0
	}
	return (s.BBUpper - s.BBLower) / s.BBMid * 100
}

// Compute evaluates the indicator set on the latest close of candles.
func Compute(candles []market.Candle) (Snapshot, error) {
	if len(candles) < minCandles {
		return Snapshot{}, fmt.Errorf("indicator: need >= %d candles, got %d", minCandles, len(candles))
	}
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}
	last := len(closes) - 1

	rsi := talib.Rsi(closes, rsiPeriod)
	macd, signal, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	ema5 := talib.Ema(closes, emaMicro5)
	ema10 := talib.Ema(closes, emaMicro10)
	emaF := talib.Ema(closes, emaFast)
	emaM := talib.Ema(closes, emaMid)
	emaS := talib.Ema(closes, emaSlow)
	bbUp, bbMid, bbLow := talib.BBands(closes, bbandsPeriod, bbandsStdDev, bbandsStdDev, talib.SMA)
	atr := talib.Atr(highs, lows, closes, atrPeriod)

	snap := Snapshot{
		Close:      closes[last],
		RSI:        rsi[last],
		MACD:       macd[last],
		MACDSignal: signal[last],
		MACDHist:   hist[last],
		EMA5:       ema5[last],
		EMA10:      ema10[last],
		EMAFast:    emaF[last],
		EMAMid:     emaM[last],
		EMASlow:    emaS[last],
		BBUpper:    bbUp[last],
		BBMid:      bbMid[last],
		BBLower:    bbLow[last],
		ATR:        atr[last],
	}
	if snap.Close > 0 {
		snap.ATRPct = snap.ATR / snap.Close * 100
	}
	snap.VolumeRatio = volumeRatio(volumes)
	snap.Momentum3 = momentumPct(closes, 3)
	snap.Momentum10 = momentumPct(closes, 10)
	return snap, nil
}

func volumeRatio(volumes []float64) float64 {
	if len(volumes) < volumeWindow {
		return 1.0
	}
	sum := 0.0
	for _, v := range volumes[len(volumes)-volumeWindow:] {
		sum += v
	}
	avg := sum / volumeWindow
	if avg <= 0 {
		return 1.0
	}
	return volumes[len(volumes)-1] / avg
}

func momentumPct(closes []float64, bars int) float64 {
	if len(closes) < bars+1 {
		return 0
	}
	base := closes[len(closes)-1-bars]
	if base == 0 {
		return 0
	}
	return (closes[len(closes)-1] - base) / base * 100
}
