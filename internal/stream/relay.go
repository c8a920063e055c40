package stream

import (
	"context"

	"paperdash/internal/alpaca"
	"paperdash/internal/metrics"

	"github.com/rs/zerolog"
)

// Source produces trade updates until ctx ends. *alpaca.Stream is one.
type Source interface {
	Run(ctx context.Context, fn func(alpaca.TradeUpdate)) error
}

// Update is the browser-facing form of a trade update.
type Update struct {
	Event     string `json:"event"`
	OrderID   string `json:"order_id"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Status    string `json:"status"`
	Qty       string `json:"qty,omitempty"`
	Price     string `json:"price,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	// Reload tells the page its tables are stale.
	Reload bool `json:"reload"`
}

// reloadEvents change positions or the open order list.
var reloadEvents = map[string]bool{
	"fill":         true,
	"partial_fill": true,
	"canceled":     true,
	"rejected":     true,
	"expired":      true,
	"done_for_day": true,
	"replaced":     true,
}

type Relay struct {
	src     Source
	bus     *Bus
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewRelay wires src to bus. m may be nil.
func NewRelay(src Source, bus *Bus, m *metrics.Metrics, log zerolog.Logger) *Relay {
	return &Relay{src: src, bus: bus, metrics: m, log: log.With().Str("component", "stream-relay").Logger()}
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	return r.src.Run(ctx, r.publish)
}

func (r *Relay) publish(u alpaca.TradeUpdate) {
	if r.metrics != nil {
		r.metrics.StreamEvents.WithLabelValues(u.Event).Inc()
	}
	r.log.Debug().Str("event", u.Event).Str("symbol", u.Order.Symbol).Msg("trade update")
	r.bus.Publish(Event{Type: "trade_update", Data: toUpdate(u)})
}

func toUpdate(u alpaca.TradeUpdate) Update {
	out := Update{
		Event:   u.Event,
		OrderID: u.Order.ID.String(),
		Symbol:  u.Order.Symbol,
		Side:    string(u.Order.Side),
		Status:  string(u.Order.Status),
		Reload:  reloadEvents[u.Event],
	}
	if u.Qty.Valid {
		out.Qty = u.Qty.Decimal.String()
	}
	if u.Price.Valid {
		out.Price = u.Price.Decimal.String()
	}
	if u.Timestamp != nil {
		out.Timestamp = u.Timestamp.UTC().Format("2006-01-02 15:04:05")
	}
	return out
}
