package broker

import (
	"context"
	"errors"

	"paperdash/internal/model"
)

var ErrNotConfigured = errors.New("broker not configured")

// DisabledClient stands in when no brokerage credentials are configured.
type DisabledClient struct{}

var _ Client = (*DisabledClient)(nil)

func NewDisabledClient() *DisabledClient {
	return &DisabledClient{}
}

func (c *DisabledClient) GetAccount(ctx context.Context) (model.Account, error) {
	return model.Account{}, ErrNotConfigured
}

func (c *DisabledClient) ListPositions(ctx context.Context) ([]model.Position, error) {
	return nil, ErrNotConfigured
}

func (c *DisabledClient) ClosePosition(ctx context.Context, symbol string) (model.Order, error) {
	return model.Order{}, ErrNotConfigured
}

func (c *DisabledClient) CloseAllPositions(ctx context.Context, cancelOrders bool) ([]model.ClosePositionResult, error) {
	return nil, ErrNotConfigured
}

func (c *DisabledClient) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	return model.Order{}, ErrNotConfigured
}

func (c *DisabledClient) ListOrders(ctx context.Context, req model.ListOrdersRequest) ([]model.Order, error) {
	return nil, ErrNotConfigured
}

func (c *DisabledClient) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	return model.Order{}, ErrNotConfigured
}

func (c *DisabledClient) CancelOrder(ctx context.Context, orderID string) error {
	return ErrNotConfigured
}

func (c *DisabledClient) CancelAllOrders(ctx context.Context) ([]model.CancelResult, error) {
	return nil, ErrNotConfigured
}
