package market

import (
	"context"
	"errors"
)

// ErrPriceUnavailable 表示本轮拿不到可信价格；调用方应跳过本轮重试，
// 绝不可用 0 或陈旧价格顶替。
var ErrPriceUnavailable = errors.New("market: price unavailable")

// Candle is one OHLCV bar. Times are unix milliseconds.
type Candle struct {
	OpenTime  int64
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Source provides current prices and historical candles.
type Source interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}
