package broker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sentra/internal/logger"
	"sentra/internal/pkg/circuit"

	"github.com/adshao/go-binance/v2"
)

// LiveBroker places real market orders on Binance. All calls go through the
// shared retry wrapper and a circuit breaker; when the breaker is open the
// order fails fast and the caller retries on a later tick.
type LiveBroker struct {
	client   *binance.Client
	attempts int
	perTry   time.Duration
	breaker  *circuit.Breaker
}

type LiveParams struct {
	APIKey    string
	SecretKey string
	Testnet   bool
	Attempts  int
	PerTry    time.Duration
	BreakerN  int
	Cooldown  time.Duration
}

func NewLiveBroker(p LiveParams) *LiveBroker {
	if p.Testnet {
		binance.UseTestnet = true
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	perTry := p.PerTry
	if perTry <= 0 {
		perTry = 5 * time.Second
	}
	breakerN := p.BreakerN
	if breakerN <= 0 {
		breakerN = 5
	}
	cooldown := p.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &LiveBroker{
		client:   binance.NewClient(p.APIKey, p.SecretKey),
		attempts: attempts,
		perTry:   perTry,
		breaker:  circuit.NewBreaker("binance-orders", breakerN, cooldown),
	}
}

// Breaker exposes the order breaker for failure-count alerting.
func (b *LiveBroker) Breaker() *circuit.Breaker { return b.breaker }

func (b *LiveBroker) PlaceOrder(ctx context.Context, req OrderRequest) (Fill, error) {
	if req.Quantity <= 0 {
		return Fill{}, fmt.Errorf("%w: quantity %f", ErrOrderFailed, req.Quantity)
	}
	if !b.breaker.Allow() {
		return Fill{}, fmt.Errorf("%w: order breaker open for %s", ErrOrderFailed, req.Symbol)
	}

	side := binance.SideTypeBuy
	if req.Side == Sell {
		side = binance.SideTypeSell
	}
	orderType := binance.OrderTypeMarket
	if req.Type == Limit {
		orderType = binance.OrderTypeLimit
	}

	var resp *binance.CreateOrderResponse
	err := retryCall(ctx, b.attempts, b.perTry, func(ctx context.Context) error {
		var callErr error
		resp, callErr = b.client.NewCreateOrderService().
			Symbol(req.Symbol).
			Side(side).
			Type(orderType).
			Quantity(strconv.FormatFloat(req.Quantity, 'f', -1, 64)).
			Do(ctx)
		return callErr
	})
	if err != nil {
		b.breaker.RecordFailure()
		logger.Errorf("live order failed %s %s qty=%.8f: %v", req.Side, req.Symbol, req.Quantity, err)
		return Fill{}, fmt.Errorf("%w: %v", ErrOrderFailed, err)
	}
	fill, err := fillFromResponse(resp)
	if err != nil {
		b.breaker.RecordFailure()
		return Fill{}, err
	}
	b.breaker.RecordSuccess()
	return fill, nil
}

func fillFromResponse(resp *binance.CreateOrderResponse) (Fill, error) {
	if resp == nil {
		return Fill{}, fmt.Errorf("%w: empty response", ErrOrderFailed)
	}
	executed, _ := strconv.ParseFloat(resp.ExecutedQuantity, 64)
	if executed <= 0 {
		return Fill{}, fmt.Errorf("%w: nothing executed (order %d)", ErrOrderFailed, resp.OrderID)
	}
	quote, _ := strconv.ParseFloat(resp.CummulativeQuoteQuantity, 64)
	if quote > 0 {
		return Fill{Price: quote / executed, Quantity: executed}, nil
	}
	// Fallback: average over the individual fills.
	var qty, notional float64
	for _, f := range resp.Fills {
		p, _ := strconv.ParseFloat(f.Price, 64)
		q, _ := strconv.ParseFloat(f.Quantity, 64)
		qty += q
		notional += p * q
	}
	if qty <= 0 {
		return Fill{}, fmt.Errorf("%w: no fills reported (order %d)", ErrOrderFailed, resp.OrderID)
	}
	return Fill{Price: notional / qty, Quantity: qty}, nil
}
