package model

import (
	"time"

	"paperdash/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID             uuid.UUID           `json:"id"`
	ClientOrderID  string              `json:"client_order_id"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      *time.Time          `json:"updated_at"`
	SubmittedAt    *time.Time          `json:"submitted_at"`
	FilledAt       *time.Time          `json:"filled_at"`
	CanceledAt     *time.Time          `json:"canceled_at"`
	ExpiredAt      *time.Time          `json:"expired_at"`
	FailedAt       *time.Time          `json:"failed_at"`
	AssetID        uuid.UUID           `json:"asset_id"`
	Symbol         string              `json:"symbol"`
	AssetClass     string              `json:"asset_class"`
	Notional       decimal.NullDecimal `json:"notional"`
	Qty            decimal.NullDecimal `json:"qty"`
	FilledQty      decimal.Decimal     `json:"filled_qty"`
	FilledAvgPrice decimal.NullDecimal `json:"filled_avg_price"`
	OrderClass     string              `json:"order_class"`
	Type           types.OrderType     `json:"type"`
	Side           types.OrderSide     `json:"side"`
	TimeInForce    types.TimeInForce   `json:"time_in_force"`
	LimitPrice     decimal.NullDecimal `json:"limit_price"`
	StopPrice      decimal.NullDecimal `json:"stop_price"`
	Status         types.OrderStatus   `json:"status"`
	ExtendedHours  bool                `json:"extended_hours"`
}

type OrderRequest struct {
	Symbol        string            `json:"symbol"`
	Qty           decimal.Decimal   `json:"qty"`
	Side          types.OrderSide   `json:"side"`
	Type          types.OrderType   `json:"type"`
	TimeInForce   types.TimeInForce `json:"time_in_force"`
	ClientOrderID string            `json:"client_order_id,omitempty"`
}

type ListOrdersRequest struct {
	Status types.QueryOrderStatus
	After  *time.Time
	Until  *time.Time
	Limit  int
}

// CancelResult is one entry of a bulk cancel response.
type CancelResult struct {
	ID     uuid.UUID `json:"id"`
	Status int       `json:"status"`
}
