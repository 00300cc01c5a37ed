package broker

import (
	"context"
	"fmt"
)

// PaperBroker 模拟盘执行器：直接按成本模型报价成交。
type PaperBroker struct{}

func NewPaperBroker() *PaperBroker { return &PaperBroker{} }

func (b *PaperBroker) PlaceOrder(_ context.Context, req OrderRequest) (Fill, error) {
	if req.Quantity <= 0 || req.Quote.AdjustedPrice <= 0 {
		return Fill{}, fmt.Errorf("%w: paper fill needs positive qty and quote", ErrOrderFailed)
	}
	return Fill{Price: req.Quote.AdjustedPrice, Quantity: req.Quantity}, nil
}
