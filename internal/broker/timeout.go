package broker

import (
	"context"
	"time"

	"paperdash/internal/model"
)

type timeoutClient struct {
	next Client
	d    time.Duration
}

// WithTimeout bounds every call on next by d. A non-positive d returns next
// unchanged.
func WithTimeout(next Client, d time.Duration) Client {
	if d <= 0 {
		return next
	}
	return &timeoutClient{next: next, d: d}
}

func (c *timeoutClient) GetAccount(ctx context.Context) (model.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.GetAccount(ctx)
}

func (c *timeoutClient) ListPositions(ctx context.Context) ([]model.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.ListPositions(ctx)
}

func (c *timeoutClient) ClosePosition(ctx context.Context, symbol string) (model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.ClosePosition(ctx, symbol)
}

func (c *timeoutClient) CloseAllPositions(ctx context.Context, cancelOrders bool) ([]model.ClosePositionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.CloseAllPositions(ctx, cancelOrders)
}

func (c *timeoutClient) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.SubmitOrder(ctx, req)
}

func (c *timeoutClient) ListOrders(ctx context.Context, req model.ListOrdersRequest) ([]model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.ListOrders(ctx, req)
}

func (c *timeoutClient) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.GetOrder(ctx, orderID)
}

func (c *timeoutClient) CancelOrder(ctx context.Context, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.CancelOrder(ctx, orderID)
}

func (c *timeoutClient) CancelAllOrders(ctx context.Context) ([]model.CancelResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.CancelAllOrders(ctx)
}
