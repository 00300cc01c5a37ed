package position

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"sentra/internal/costs"
	"sentra/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status 表示持仓状态机的当前状态。
type Status string

const (
	StatusOpen            Status = "OPEN"
	StatusPartiallyClosed Status = "PARTIALLY_CLOSED"
	StatusClosed          Status = "CLOSED"
)

// CloseReason tags why a (partial) close happened.
type CloseReason string

const (
	ReasonStopLoss      CloseReason = "stop_loss"
	ReasonTakeProfit    CloseReason = "take_profit"
	ReasonBreakevenPlus CloseReason = "breakeven_plus"
	ReasonTimeLimit     CloseReason = "time_limit"
	ReasonManual        CloseReason = "manual"
)

// Quantities below this are treated as zero to absorb float dust.
const qtyEpsilon = 1e-9

// PartialClose is one ledger entry of the position's close history.
type PartialClose struct {
	Qty         float64     `json:"quantity"`
	ExitPrice   float64     `json:"exit_price"`
	RealizedPnL float64     `json:"realized_pnl"`
	Fees        float64     `json:"fees"`
	Reason      CloseReason `json:"reason"`
	At          time.Time   `json:"at"`
}

// ClosureResult reports the outcome of one ClosePartial call.
type ClosureResult struct {
	ClosedQty    float64
	ExitPrice    float64
	RealizedPnL  float64
	Fees         float64
	RemainingQty float64
	TotalPnL     float64
	FullClose    bool
	Reason       CloseReason
}

// Position is one open (possibly partially closed) trade. All mutation goes
// through ClosePartial/CloseFull under the position's own mutex; once
// RemainingQty hits zero the position is terminal and immutable.
type Position struct {
	ID       string
	Symbol   string
	Strategy string
	Side     types.Side

	EntryPrice  float64
	EntryFee    float64
	OriginalQty float64
	StopLoss    float64
	TakeProfit  float64
	OpenedAt    time.Time

	mu            sync.Mutex
	remaining     float64
	partials      []PartialClose
	closedAt      time.Time
	closeReason   CloseReason
	breakevenDone bool
	lastError     string
}

// OpenParams carries everything needed to create a position. EntryQuote must
// come from the cost model (or a live fill mapped into one).
type OpenParams struct {
	Symbol        string
	Strategy      string
	Side          types.Side
	Quantity      float64
	EntryQuote    costs.Quote
	StopLossPct   float64
	TakeProfitPct float64
	OpenedAt      time.Time
}

// Open validates params, derives stop/take-profit prices from the adjusted
// entry price, and returns a fresh OPEN position.
func Open(p OpenParams) (*Position, error) {
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	strategy := strings.TrimSpace(p.Strategy)
	if symbol == "" || strategy == "" {
		return nil, fmt.Errorf("%w: symbol and strategy required", ErrInvalidParams)
	}
	if !p.Side.Valid() {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidParams, p.Side)
	}
	if p.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity %f", ErrInvalidParams, p.Quantity)
	}
	entry := p.EntryQuote.AdjustedPrice
	if entry <= 0 {
		return nil, fmt.Errorf("%w: entry price %f", ErrInvalidParams, entry)
	}
	if p.StopLossPct <= 0 || p.StopLossPct >= 100 {
		return nil, fmt.Errorf("%w: stop_loss_pct %f", ErrInvalidParams, p.StopLossPct)
	}
	if p.TakeProfitPct <= 0 {
		return nil, fmt.Errorf("%w: take_profit_pct %f", ErrInvalidParams, p.TakeProfitPct)
	}

	stop := relativePrice(entry, -p.StopLossPct, p.Side)
	target := relativePrice(entry, p.TakeProfitPct, p.Side)
	if err := validateLevels(entry, stop, target, p.Side); err != nil {
		return nil, err
	}

	openedAt := p.OpenedAt
	if openedAt.IsZero() {
		openedAt = time.Now()
	}
	return &Position{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Strategy:    strategy,
		Side:        p.Side,
		EntryPrice:  entry,
		EntryFee:    p.EntryQuote.Fee,
		OriginalQty: p.Quantity,
		StopLoss:    stop,
		TakeProfit:  target,
		OpenedAt:    openedAt,
		remaining:   p.Quantity,
	}, nil
}

// relativePrice shifts entry by pct percent in the direction that the side
// experiences it: a positive pct is profit-ward, negative is loss-ward.
func relativePrice(entry, pct float64, side types.Side) float64 {
	factor := decimal.NewFromInt(1).Add(
		decimal.NewFromFloat(pct * side.Sign()).Div(decimal.NewFromInt(100)))
	out, _ := decimal.NewFromFloat(entry).Mul(factor).Float64()
	return out
}

func validateLevels(entry, stop, target float64, side types.Side) error {
	if stop <= 0 || target <= 0 {
		return fmt.Errorf("%w: derived stop=%f target=%f", ErrInvalidParams, stop, target)
	}
	switch side {
	case types.Long:
		if stop >= entry || target <= entry {
			return fmt.Errorf("%w: long stop=%f target=%f entry=%f", ErrInvalidParams, stop, target, entry)
		}
	case types.Short:
		if stop <= entry || target >= entry {
			return fmt.Errorf("%w: short stop=%f target=%f entry=%f", ErrInvalidParams, stop, target, entry)
		}
	}
	return nil
}

// Status derives the state-machine state from the quantity ledger.
func (p *Position) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

func (p *Position) statusLocked() Status {
	switch {
	case p.remaining <= qtyEpsilon && len(p.partials) > 0:
		return StatusClosed
	case p.remaining < p.OriginalQty:
		return StatusPartiallyClosed
	default:
		return StatusOpen
	}
}

// RemainingQty is the quantity still open.
func (p *Position) RemainingQty() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remaining
}

// RealizedPnL sums the ledger.
func (p *Position) RealizedPnL() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realizedLocked()
}

func (p *Position) realizedLocked() float64 {
	total := decimal.Zero
	for _, pc := range p.partials {
		total = total.Add(decimal.NewFromFloat(pc.RealizedPnL))
	}
	out, _ := total.Float64()
	return out
}

// FeesTotal is every fee attributable to the position so far. Each ledger
// entry already carries its entry-fee share plus its exit fee; the still-open
// remainder carries the rest of the entry fee.
func (p *Position) FeesTotal() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := decimal.NewFromFloat(p.EntryFee).
		Mul(decimal.NewFromFloat(p.remaining)).
		Div(decimal.NewFromFloat(p.OriginalQty))
	for _, pc := range p.partials {
		total = total.Add(decimal.NewFromFloat(pc.Fees))
	}
	out, _ := total.Float64()
	return out
}

// GrossMovePct is the signed move from entry to price in percent, positive
// when the position is in profit.
func (p *Position) GrossMovePct(price float64) float64 {
	if p.EntryPrice <= 0 || price <= 0 {
		return 0
	}
	move := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(p.EntryPrice)).
		Div(decimal.NewFromFloat(p.EntryPrice)).Mul(decimal.NewFromInt(100))
	out, _ := move.Float64()
	return out * p.Side.Sign()
}

// UnrealizedPnL values the remaining quantity at price, before exit costs.
func (p *Position) UnrealizedPnL(price float64) float64 {
	p.mu.Lock()
	remaining := p.remaining
	p.mu.Unlock()
	if price <= 0 || remaining <= 0 {
		return 0
	}
	diff := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(p.EntryPrice))
	out, _ := diff.Mul(decimal.NewFromFloat(remaining)).Float64()
	return out * p.Side.Sign()
}

// ClosePartial closes closeQty at the quoted exit. The slice PnL is
// (exit − entry) · qty · sideSign minus this slice's share of the entry fee
// and the full exit fee. Requires 0 < closeQty ≤ remaining.
func (p *Position) ClosePartial(closeQty float64, exitQuote costs.Quote, reason CloseReason) (ClosureResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.statusLocked() == StatusClosed {
		return ClosureResult{}, ErrAlreadyClosed
	}
	if closeQty <= 0 || closeQty > p.remaining+qtyEpsilon {
		return ClosureResult{}, fmt.Errorf("%w: close=%f remaining=%f", ErrOverClose, closeQty, p.remaining)
	}
	exitPrice := exitQuote.AdjustedPrice
	if exitPrice <= 0 {
		return ClosureResult{}, fmt.Errorf("%w: exit price %f", ErrInvalidParams, exitPrice)
	}
	if closeQty > p.remaining {
		closeQty = p.remaining
	}

	qty := decimal.NewFromFloat(closeQty)
	gross := decimal.NewFromFloat(exitPrice).Sub(decimal.NewFromFloat(p.EntryPrice)).
		Mul(qty).Mul(decimal.NewFromFloat(p.Side.Sign()))
	entryFeeShare := decimal.NewFromFloat(p.EntryFee).Mul(qty).Div(decimal.NewFromFloat(p.OriginalQty))
	fees := entryFeeShare.Add(decimal.NewFromFloat(exitQuote.Fee))
	pnl, _ := gross.Sub(fees).Float64()
	feesF, _ := fees.Float64()

	now := time.Now()
	p.partials = append(p.partials, PartialClose{
		Qty:         closeQty,
		ExitPrice:   exitPrice,
		RealizedPnL: pnl,
		Fees:        feesF,
		Reason:      reason,
		At:          now,
	})
	remaining, _ := decimal.NewFromFloat(p.remaining).Sub(qty).Float64()
	if remaining < qtyEpsilon {
		remaining = 0
	}
	p.remaining = remaining
	p.lastError = ""

	result := ClosureResult{
		ClosedQty:    closeQty,
		ExitPrice:    exitPrice,
		RealizedPnL:  pnl,
		Fees:         feesF,
		RemainingQty: remaining,
		TotalPnL:     p.realizedLocked(),
		Reason:       reason,
	}
	if remaining == 0 {
		p.closedAt = now
		p.closeReason = reason
		result.FullClose = true
	}
	return result, nil
}

// CloseFull closes whatever remains.
func (p *Position) CloseFull(exitQuote costs.Quote, reason CloseReason) (ClosureResult, error) {
	p.mu.Lock()
	remaining := p.remaining
	p.mu.Unlock()
	if remaining <= 0 {
		return ClosureResult{}, ErrAlreadyClosed
	}
	return p.ClosePartial(remaining, exitQuote, reason)
}

// Partials returns a copy of the close ledger.
func (p *Position) Partials() []PartialClose {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PartialClose, len(p.partials))
	copy(out, p.partials)
	return out
}

// ClosedAt and Reason are only meaningful once Status() == StatusClosed.
func (p *Position) ClosedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closedAt
}

func (p *Position) Reason() CloseReason {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeReason
}

// BreakevenDone reports whether the breakeven-plus rule already fired; it
// fires at most once per position.
func (p *Position) BreakevenDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.breakevenDone
}

func (p *Position) MarkBreakevenDone() {
	p.mu.Lock()
	p.breakevenDone = true
	p.mu.Unlock()
}

// SetLastError surfaces a failed close on the dashboard; cleared by the next
// successful close.
func (p *Position) SetLastError(msg string) {
	p.mu.Lock()
	p.lastError = msg
	p.mu.Unlock()
}

func (p *Position) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}

// Snapshot is a read-only copy for the API layer.
func (p *Position) Snapshot() types.PositionSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return types.PositionSnapshot{
		ID:            p.ID,
		Symbol:        p.Symbol,
		Strategy:      p.Strategy,
		Side:          p.Side,
		Status:        string(p.statusLocked()),
		EntryPrice:    p.EntryPrice,
		OriginalQty:   p.OriginalQty,
		RemainingQty:  p.remaining,
		StopLoss:      p.StopLoss,
		TakeProfit:    p.TakeProfit,
		RealizedPnL:   p.realizedLocked(),
		OpenedAt:      p.OpenedAt,
		HoldingMs:     time.Since(p.OpenedAt).Milliseconds(),
		LastError:     p.lastError,
		PartialCloses: len(p.partials),
	}
}
