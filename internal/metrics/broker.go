package metrics

import (
	"context"
	"time"

	"paperdash/internal/broker"
	"paperdash/internal/model"
)

type instrumentedBroker struct {
	next broker.Client
	m    *Metrics
}

// InstrumentBroker wraps a broker.Client so every call is counted and timed.
func InstrumentBroker(next broker.Client, m *Metrics) broker.Client {
	return &instrumentedBroker{next: next, m: m}
}

func (b *instrumentedBroker) GetAccount(ctx context.Context) (model.Account, error) {
	start := time.Now()
	acc, err := b.next.GetAccount(ctx)
	b.m.observeBroker("get_account", start, err)
	return acc, err
}

func (b *instrumentedBroker) ListPositions(ctx context.Context) ([]model.Position, error) {
	start := time.Now()
	out, err := b.next.ListPositions(ctx)
	b.m.observeBroker("list_positions", start, err)
	return out, err
}

func (b *instrumentedBroker) ClosePosition(ctx context.Context, symbol string) (model.Order, error) {
	start := time.Now()
	o, err := b.next.ClosePosition(ctx, symbol)
	b.m.observeBroker("close_position", start, err)
	return o, err
}

func (b *instrumentedBroker) CloseAllPositions(ctx context.Context, cancelOrders bool) ([]model.ClosePositionResult, error) {
	start := time.Now()
	out, err := b.next.CloseAllPositions(ctx, cancelOrders)
	b.m.observeBroker("close_all_positions", start, err)
	return out, err
}

func (b *instrumentedBroker) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	start := time.Now()
	o, err := b.next.SubmitOrder(ctx, req)
	b.m.observeBroker("submit_order", start, err)
	return o, err
}

func (b *instrumentedBroker) ListOrders(ctx context.Context, req model.ListOrdersRequest) ([]model.Order, error) {
	start := time.Now()
	out, err := b.next.ListOrders(ctx, req)
	b.m.observeBroker("list_orders", start, err)
	return out, err
}

func (b *instrumentedBroker) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	start := time.Now()
	o, err := b.next.GetOrder(ctx, orderID)
	b.m.observeBroker("get_order", start, err)
	return o, err
}

func (b *instrumentedBroker) CancelOrder(ctx context.Context, orderID string) error {
	start := time.Now()
	err := b.next.CancelOrder(ctx, orderID)
	b.m.observeBroker("cancel_order", start, err)
	return err
}

func (b *instrumentedBroker) CancelAllOrders(ctx context.Context) ([]model.CancelResult, error) {
	start := time.Now()
	out, err := b.next.CancelAllOrders(ctx)
	b.m.observeBroker("cancel_all_orders", start, err)
	return out, err
}
