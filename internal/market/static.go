package market

import (
	"context"
	"strings"
	"sync"
)

// StaticSource is an in-memory source for tests and offline runs.
type StaticSource struct {
	mu      sync.RWMutex
	prices  map[string]float64
	errs    map[string]error
	candles map[string][]Candle
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		prices:  make(map[string]float64),
		errs:    make(map[string]error),
		candles: make(map[string][]Candle),
	}
}

func (s *StaticSource) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	s.prices[strings.ToUpper(symbol)] = price
	delete(s.errs, strings.ToUpper(symbol))
	s.mu.Unlock()
}

func (s *StaticSource) SetError(symbol string, err error) {
	s.mu.Lock()
	s.errs[strings.ToUpper(symbol)] = err
	s.mu.Unlock()
}

func (s *StaticSource) SetCandles(symbol string, candles []Candle) {
	s.mu.Lock()
	s.candles[strings.ToUpper(symbol)] = candles
	s.mu.Unlock()
}

func (s *StaticSource) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.errs[symbol]; ok {
		return 0, err
	}
	price, ok := s.prices[symbol]
	if !ok || price <= 0 {
		return 0, ErrPriceUnavailable
	}
	return price, nil
}

func (s *StaticSource) Candles(_ context.Context, symbol, _ string, _ int) ([]Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candles[strings.ToUpper(symbol)], nil
}
