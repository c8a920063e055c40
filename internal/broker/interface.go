package broker

import (
	"context"

	"paperdash/internal/model"
)

// Client is the brokerage surface the dashboard depends on. Every method is a
// single blocking remote call; implementations do not retry.
type Client interface {
	GetAccount(ctx context.Context) (model.Account, error)
	ListPositions(ctx context.Context) ([]model.Position, error)
	ClosePosition(ctx context.Context, symbol string) (model.Order, error)
	CloseAllPositions(ctx context.Context, cancelOrders bool) ([]model.ClosePositionResult, error)
	SubmitOrder(ctx context.Context, req model.OrderRequest) (model.Order, error)
	ListOrders(ctx context.Context, req model.ListOrdersRequest) ([]model.Order, error)
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelAllOrders(ctx context.Context) ([]model.CancelResult, error)
}
