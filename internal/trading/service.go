// Package trading turns dashboard requests into brokerage calls and the
// brokerage's records into display text. Remote failures end here: every
// operation reports them as a message instead of returning an error.
package trading

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"paperdash/internal/broker"
	"paperdash/internal/id"
	"paperdash/internal/journal"
	"paperdash/internal/model"
	"paperdash/internal/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const OrderListLimit = 100

const InvalidOrderInput = "Please enter valid symbol and quantity"

type Service struct {
	client  broker.Client
	journal journal.Store
	log     zerolog.Logger
	newID   func() string
}

// NewService wires the façade. j may be nil when no audit trail is wanted.
func NewService(client broker.Client, j journal.Store, log zerolog.Logger) *Service {
	return &Service{
		client:  client,
		journal: j,
		log:     log.With().Str("component", "trading").Logger(),
		newID:   id.New,
	}
}

// SubmitMarketOrder places a good-til-canceled market order. There is no
// idempotency key: submitting twice places two orders.
func (s *Service) SubmitMarketOrder(ctx context.Context, symbol string, qty decimal.Decimal, side types.OrderSide) Result {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || !qty.IsPositive() {
		return Result{Message: InvalidOrderInput, Failed: true}
	}
	entry := journal.Entry{Action: types.ActionSubmitOrder, Symbol: symbol, Side: string(side), Qty: qty.String()}
	if !side.Valid() {
		return s.finish(ctx, entry, fmt.Sprintf("Error placing order: invalid side %q", side), true)
	}
	order, err := s.client.SubmitOrder(ctx, model.OrderRequest{
		Symbol:        symbol,
		Qty:           qty,
		Side:          side,
		Type:          types.OrderTypeMarket,
		TimeInForce:   types.TimeInForceGTC,
		ClientOrderID: s.newID(),
	})
	if err != nil {
		s.warn("submit_order", err)
		return s.finish(ctx, entry, "Error placing order: "+err.Error(), true)
	}
	entry.OrderID = order.ID.String()
	return s.finish(ctx, entry, fmt.Sprintf("Order placed successfully: %s %s %s", title(string(side)), qty.String(), symbol), false)
}

// AccountSnapshot returns the brokerage account as-is, error included.
func (s *Service) AccountSnapshot(ctx context.Context) (model.Account, error) {
	return s.client.GetAccount(ctx)
}

// Account is the display form of AccountSnapshot.
func (s *Service) Account(ctx context.Context) AccountView {
	acc, err := s.AccountSnapshot(ctx)
	if err != nil {
		s.warn("get_account", err)
		return AccountView{Error: "Error fetching account: " + err.Error()}
	}
	return AccountView{
		Basic: []Field{
			{Label: "Buying Power", Value: money(acc.BuyingPower)},
			{Label: "Cash", Value: money(acc.Cash)},
			{Label: "Portfolio Value", Value: money(acc.PortfolioValue)},
			{Label: "Currency", Value: acc.Currency},
		},
		Status: []Field{
			{Label: "Pattern Day Trader", Value: boolText(acc.PatternDayTrader)},
			{Label: "Trading Blocked", Value: boolText(acc.TradingBlocked)},
			{Label: "Transfers Blocked", Value: boolText(acc.TransfersBlocked)},
			{Label: "Account Blocked", Value: boolText(acc.AccountBlocked)},
			{Label: "Multiplier", Value: acc.Multiplier.String()},
		},
	}
}

func (s *Service) Positions(ctx context.Context) Table {
	t := Table{Columns: PositionColumns, Records: []Record{}}
	positions, err := s.client.ListPositions(ctx)
	if err != nil {
		s.warn("list_positions", err)
		t.Error = "Error fetching positions: " + err.Error()
		t.Records = nil
		return t
	}
	for _, p := range positions {
		t.Records = append(t.Records, positionRecord(p))
	}
	return t
}

func positionRecord(p model.Position) Record {
	side := "Short"
	if p.Qty.IsPositive() {
		side = "Long"
	}
	return Record{
		"Symbol":         p.Symbol,
		"Side":           side,
		"Quantity":       p.Qty.Abs().String(),
		"Market Value":   money(p.MarketValue),
		"Average Entry":  money(p.AvgEntryPrice),
		"Unrealized P/L": money(p.UnrealizedPL),
		"Current Price":  money(p.CurrentPrice),
	}
}

// OrderQuery bounds an order history fetch. Zero Start or End leaves that
// side open.
type OrderQuery struct {
	Start  time.Time
	End    time.Time
	Status types.QueryOrderStatus
}

func (s *Service) Orders(ctx context.Context, q OrderQuery) Table {
	req := model.ListOrdersRequest{Status: q.Status, Limit: OrderListLimit}
	if req.Status == "" {
		req.Status = types.QueryOrderStatusAll
	}
	if !q.Start.IsZero() {
		start := q.Start
		req.After = &start
	}
	if !q.End.IsZero() {
		end := q.End
		req.Until = &end
	}
	return s.orderTable(ctx, "list_orders", req, OrderColumns, "Error fetching orders: ")
}

func (s *Service) OpenOrders(ctx context.Context) Table {
	req := model.ListOrdersRequest{Status: types.QueryOrderStatusOpen, Limit: OrderListLimit}
	return s.orderTable(ctx, "list_open_orders", req, OpenOrderColumns, "Error fetching current orders: ")
}

func (s *Service) orderTable(ctx context.Context, op string, req model.ListOrdersRequest, columns []string, errPrefix string) Table {
	t := Table{Columns: columns, Records: []Record{}}
	orders, err := s.client.ListOrders(ctx, req)
	if err != nil {
		s.warn(op, err)
		t.Error = errPrefix + err.Error()
		t.Records = nil
		return t
	}
	for _, o := range orders {
		rec := orderRecord(o)
		for label := range rec {
			if !slices.Contains(columns, label) {
				delete(rec, label)
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

func orderRecord(o model.Order) Record {
	return Record{
		"Order ID":     o.ID.String(),
		"Symbol":       o.Symbol,
		"Side":         title(string(o.Side)),
		"Quantity":     nullQty(o.Qty),
		"Order Type":   title(string(o.Type)),
		"Status":       title(string(o.Status)),
		"Submitted At": timestamp(o.SubmittedAt, "N/A"),
		"Filled At":    timestamp(o.FilledAt, "Not Filled"),
		"Filled Price": nullMoney(o.FilledAvgPrice, "Not Filled"),
	}
}

// Order fetches one order and derives which actions the dashboard offers for
// it. The offered actions follow the fetched status only.
func (s *Service) Order(ctx context.Context, orderID string) OrderDetail {
	orderID = strings.TrimSpace(orderID)
	o, err := s.client.GetOrder(ctx, orderID)
	if err != nil {
		s.warn("get_order", err)
		return OrderDetail{Error: "Error fetching order: " + err.Error()}
	}
	d := OrderDetail{
		Order: &o,
		Details: []Field{
			{Label: "Symbol", Value: o.Symbol},
			{Label: "Side", Value: title(string(o.Side))},
			{Label: "Quantity", Value: nullQty(o.Qty)},
			{Label: "Type", Value: title(string(o.Type))},
			{Label: "Status", Value: title(string(o.Status))},
		},
		Timing: []Field{
			{Label: "Submitted At", Value: timestamp(o.SubmittedAt, "N/A")},
			{Label: "Filled At", Value: timestamp(o.FilledAt, "Not filled yet")},
			{Label: "Filled Price", Value: nullMoney(o.FilledAvgPrice, "Not filled yet")},
		},
	}
	switch {
	case o.Status.Cancelable():
		d.CanCancel = true
	case o.Status == types.OrderStatusFilled:
		d.CanClose = true
	default:
		d.Notice = fmt.Sprintf("Order is in %s state. No actions available.", o.Status)
	}
	return d
}

func (s *Service) CancelOrder(ctx context.Context, orderID string) Result {
	entry := journal.Entry{Action: types.ActionCancelOrder, OrderID: orderID}
	if err := s.client.CancelOrder(ctx, strings.TrimSpace(orderID)); err != nil {
		s.warn("cancel_order", err)
		return s.finish(ctx, entry, "Error cancelling order: "+err.Error(), true)
	}
	return s.finish(ctx, entry, fmt.Sprintf("Order %s cancelled successfully", orderID), false)
}

func (s *Service) ClosePosition(ctx context.Context, symbol string) Result {
	entry := journal.Entry{Action: types.ActionClosePosition, Symbol: symbol}
	order, err := s.client.ClosePosition(ctx, strings.TrimSpace(symbol))
	if err != nil {
		s.warn("close_position", err)
		return s.finish(ctx, entry, "Error closing position: "+err.Error(), true)
	}
	entry.OrderID = order.ID.String()
	return s.finish(ctx, entry, fmt.Sprintf("Position for %s closed successfully", symbol), false)
}

// CloseAllPositions also cancels open orders so their reservations do not
// block the closing orders.
func (s *Service) CloseAllPositions(ctx context.Context) Result {
	entry := journal.Entry{Action: types.ActionCloseAllPositions}
	if _, err := s.client.CloseAllPositions(ctx, true); err != nil {
		s.warn("close_all_positions", err)
		return s.finish(ctx, entry, "Error closing positions: "+err.Error(), true)
	}
	return s.finish(ctx, entry, "All positions closed successfully", false)
}

func (s *Service) CancelAllOrders(ctx context.Context) Result {
	entry := journal.Entry{Action: types.ActionCancelAllOrders}
	if _, err := s.client.CancelAllOrders(ctx); err != nil {
		s.warn("cancel_all_orders", err)
		return s.finish(ctx, entry, "Error cancelling orders: "+err.Error(), true)
	}
	return s.finish(ctx, entry, "All orders cancelled successfully", false)
}

// Activity lists the most recent journaled actions.
func (s *Service) Activity(ctx context.Context, limit int) ([]journal.Entry, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Recent(ctx, limit)
}

func (s *Service) finish(ctx context.Context, entry journal.Entry, msg string, failed bool) Result {
	entry.Message = msg
	entry.Failed = failed
	if s.journal != nil {
		if err := s.journal.Record(ctx, entry); err != nil {
			s.log.Error().Err(err).Str("action", string(entry.Action)).Msg("journal record failed")
		}
	}
	return Result{Message: msg, Failed: failed}
}

func (s *Service) warn(op string, err error) {
	s.log.Warn().Err(err).Str("op", op).Msg("broker call failed")
}
