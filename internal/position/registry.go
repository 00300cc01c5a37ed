package position

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"sentra/internal/logger"
)

// Key identifies the one slot a symbol+strategy pair may occupy.
type Key struct {
	Symbol   string
	Strategy string
}

func NewKey(symbol, strategy string) Key {
	return Key{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Strategy: strings.TrimSpace(strategy),
	}
}

func (k Key) String() string {
	return k.Symbol + "_" + k.Strategy
}

// RiskCheck is consulted inside TryOpen's critical section; a non-nil error
// rejects the open without side effects.
type RiskCheck func(openCount int) error

// Registry 持有全部在场仓位，(symbol, strategy) 作为唯一键。
// 开仓走"预留→下单→落位"三步：键与容量在锁内预留，订单在锁外执行，
// 慢交易所调用不会阻塞快照和摘除。
type Registry struct {
	mu        sync.RWMutex
	capacity  int
	positions map[Key]*Position
	reserved  map[Key]struct{}
}

func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = 1
	}
	return &Registry{
		capacity:  capacity,
		positions: make(map[Key]*Position),
		reserved:  make(map[Key]struct{}),
	}
}

// TryOpen reserves the key and a capacity slot (duplicate, capacity and risk
// checks are atomic), then runs factory with the lock released and commits
// the resulting position. Any rejection or factory error frees the
// reservation and leaves the registry untouched.
func (r *Registry) TryOpen(key Key, riskCheck RiskCheck, factory func() (*Position, error)) (*Position, error) {
	if err := r.reserve(key, riskCheck); err != nil {
		return nil, err
	}

	pos, err := factory()
	if err != nil {
		r.release(key)
		return nil, err
	}
	if got := NewKey(pos.Symbol, pos.Strategy); got != key {
		r.release(key)
		return nil, fmt.Errorf("%w: factory produced %s for slot %s", ErrInvalidParams, got, key)
	}

	r.mu.Lock()
	delete(r.reserved, key)
	r.positions[key] = pos
	r.mu.Unlock()
	logger.Infof("registry: opened %s %s @ %.6f qty=%.8f stop=%.6f target=%.6f",
		pos.Side, key, pos.EntryPrice, pos.OriginalQty, pos.StopLoss, pos.TakeProfit)
	return pos, nil
}

// reserve claims the slot; reserved keys count against capacity so two
// in-flight opens cannot oversubscribe it.
func (r *Registry) reserve(key Key, riskCheck RiskCheck) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.positions[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	if _, exists := r.reserved[key]; exists {
		return fmt.Errorf("%w: %s (open in flight)", ErrDuplicateKey, key)
	}
	inUse := len(r.positions) + len(r.reserved)
	if inUse >= r.capacity {
		return fmt.Errorf("%w: %d/%d", ErrCapacityExceeded, inUse, r.capacity)
	}
	if riskCheck != nil {
		if err := riskCheck(inUse); err != nil {
			return fmt.Errorf("%w: %v", ErrRiskRejected, err)
		}
	}
	r.reserved[key] = struct{}{}
	return nil
}

func (r *Registry) release(key Key) {
	r.mu.Lock()
	delete(r.reserved, key)
	r.mu.Unlock()
}

// Get returns the open position for key, if any.
func (r *Registry) Get(key Key) (*Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.positions[key]
	return p, ok
}

// Has reports whether symbol has an open position under any strategy when
// strategy is empty, or under that exact strategy otherwise.
func (r *Registry) Has(symbol, strategy string) bool {
	if strategy != "" {
		_, ok := r.Get(NewKey(symbol, strategy))
		return ok
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k := range r.positions {
		if k.Symbol == symbol {
			return true
		}
	}
	return false
}

// OpenSnapshot returns a stable, sorted point-in-time slice of the open
// positions. The positions themselves serialize mutation on their own mutex.
func (r *Registry) OpenSnapshot() []*Position {
	r.mu.RLock()
	out := make([]*Position, 0, len(r.positions))
	for _, p := range r.positions {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out
}

// Remove drops the key from the registry. Removing an absent key is a no-op;
// double-close races end up here and must not error.
func (r *Registry) Remove(key Key) {
	r.mu.Lock()
	if _, ok := r.positions[key]; ok {
		delete(r.positions, key)
		logger.Debugf("registry: removed %s", key)
	}
	r.mu.Unlock()
}

// Len is the number of currently open positions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}
