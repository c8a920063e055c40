package types

type OrderSide string

type OrderType string

type OrderStatus string

type TimeInForce string

type QueryOrderStatus string

type Action string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeMarket       OrderType = "market"
	OrderTypeLimit        OrderType = "limit"
	OrderTypeStop         OrderType = "stop"
	OrderTypeStopLimit    OrderType = "stop_limit"
	OrderTypeTrailingStop OrderType = "trailing_stop"
)

const (
	OrderStatusNew                OrderStatus = "new"
	OrderStatusPartiallyFilled    OrderStatus = "partially_filled"
	OrderStatusFilled             OrderStatus = "filled"
	OrderStatusDoneForDay         OrderStatus = "done_for_day"
	OrderStatusCanceled           OrderStatus = "canceled"
	OrderStatusExpired            OrderStatus = "expired"
	OrderStatusReplaced           OrderStatus = "replaced"
	OrderStatusPendingCancel      OrderStatus = "pending_cancel"
	OrderStatusPendingReplace     OrderStatus = "pending_replace"
	OrderStatusAccepted           OrderStatus = "accepted"
	OrderStatusPendingNew         OrderStatus = "pending_new"
	OrderStatusAcceptedForBidding OrderStatus = "accepted_for_bidding"
	OrderStatusStopped            OrderStatus = "stopped"
	OrderStatusRejected           OrderStatus = "rejected"
	OrderStatusSuspended          OrderStatus = "suspended"
	OrderStatusCalculated         OrderStatus = "calculated"
)

const (
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceDay TimeInForce = "day"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceFOK TimeInForce = "fok"
)

const (
	QueryOrderStatusOpen   QueryOrderStatus = "open"
	QueryOrderStatusClosed QueryOrderStatus = "closed"
	QueryOrderStatusAll    QueryOrderStatus = "all"
)

const (
	ActionSubmitOrder       Action = "submit_order"
	ActionCancelOrder       Action = "cancel_order"
	ActionCancelAllOrders   Action = "cancel_all_orders"
	ActionClosePosition     Action = "close_position"
	ActionCloseAllPositions Action = "close_all_positions"
)

func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// Cancelable reports whether the dashboard offers a cancel button for the status.
// The brokerage still decides whether the cancel succeeds.
func (s OrderStatus) Cancelable() bool {
	switch s {
	case OrderStatusNew, OrderStatusAccepted, OrderStatusPendingNew, OrderStatusAcceptedForBidding:
		return true
	}
	return false
}
