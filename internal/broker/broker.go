package broker

import (
	"context"
	"errors"

	"sentra/internal/costs"
)

// ErrOrderFailed means the exchange did not confirm the order. The caller
// must leave the position untouched and retry on its next tick.
var ErrOrderFailed = errors.New("broker: order failed")

// OrderSide is the exchange-facing taker direction, not the position side:
// closing a long is a SELL.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

// OrderRequest describes one order. Quote is the cost-model estimate; the
// paper broker fills at it, the live broker ignores it.
type OrderRequest struct {
	Symbol   string
	Side     OrderSide
	Quantity float64
	Type     OrderType
	Quote    costs.Quote
}

// Fill is the confirmed execution.
type Fill struct {
	Price    float64
	Quantity float64
}

// Broker places orders. Implementations must be safe for concurrent use.
type Broker interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (Fill, error)
}
