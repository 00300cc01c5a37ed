package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"sentra/internal/logger"

	"github.com/adshao/go-binance/v2"
)

// Cached ticks older than this are discarded rather than served.
const maxPriceAge = 30 * time.Second

type cachedPrice struct {
	price float64
	at    time.Time
}

// BinanceSource serves prices/candles from the Binance REST API with a short
// per-symbol cache so a 1s monitor tick does not hammer the ticker endpoint.
type BinanceSource struct {
	client   *binance.Client
	cacheTTL time.Duration
	timeout  time.Duration

	mu    sync.RWMutex
	cache map[string]cachedPrice
}

type BinanceParams struct {
	APIKey    string
	SecretKey string
	Testnet   bool
	CacheTTL  time.Duration
	Timeout   time.Duration
}

func NewBinanceSource(p BinanceParams) *BinanceSource {
	if p.Testnet {
		binance.UseTestnet = true
	}
	ttl := p.CacheTTL
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BinanceSource{
		client:   binance.NewClient(p.APIKey, p.SecretKey),
		cacheTTL: ttl,
		timeout:  timeout,
		cache:    make(map[string]cachedPrice),
	}
}

func (s *BinanceSource) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("%w: empty symbol", ErrPriceUnavailable)
	}
	if price, ok := s.cached(symbol); ok {
		return price, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		logger.Debugf("binance price fetch failed %s: %v", symbol, err)
		return 0, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: %s: empty response", ErrPriceUnavailable, symbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("%w: %s: bad price %q", ErrPriceUnavailable, symbol, prices[0].Price)
	}

	s.mu.Lock()
	s.cache[symbol] = cachedPrice{price: price, at: time.Now()}
	s.mu.Unlock()
	return price, nil
}

func (s *BinanceSource) cached(symbol string) (float64, bool) {
	s.mu.RLock()
	entry, ok := s.cache[symbol]
	s.mu.RUnlock()
	if !ok {
		return 0, false
	}
	age := time.Since(entry.at)
	if age > s.cacheTTL || age > maxPriceAge {
		return 0, false
	}
	return entry.price, true
}

func (s *BinanceSource) Candles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	klines, err := s.client.NewKlinesService().
		Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}
	out := make([]Candle, 0, len(klines))
	for _, k := range klines {
		c := Candle{OpenTime: k.OpenTime, CloseTime: k.CloseTime}
		c.Open = parseF(k.Open)
		c.High = parseF(k.High)
		c.Low = parseF(k.Low)
		c.Close = parseF(k.Close)
		c.Volume = parseF(k.Volume)
		out = append(out, c)
	}
	return out, nil
}

func parseF(raw string) float64 {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}
