package stream

import (
	"context"
	"testing"
	"time"

	"paperdash/internal/alpaca"
	"paperdash/internal/metrics"
	"paperdash/internal/model"
	"paperdash/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()
	assert.Equal(t, 2, bus.Subscribers())

	bus.Publish(Event{Type: "trade_update", Data: "x"})

	assert.Equal(t, "trade_update", (<-a).Type)
	assert.Equal(t, "trade_update", (<-b).Type)

	bus.Unsubscribe(a)
	bus.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, bus.Subscribers())
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			bus.Publish(Event{Type: "trade_update"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, cap(sub), len(sub))
}

type fakeSource struct {
	updates []alpaca.TradeUpdate
}

func (f fakeSource) Run(ctx context.Context, fn func(alpaca.TradeUpdate)) error {
	for _, u := range f.updates {
		fn(u)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRelay_PublishesUpdates(t *testing.T) {
	ts := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	src := fakeSource{updates: []alpaca.TradeUpdate{
		{
			Event:     "fill",
			Timestamp: &ts,
			Price:     decimal.NewNullDecimal(decimal.RequireFromString("187.31")),
			Qty:       decimal.NewNullDecimal(decimal.NewFromInt(2)),
			Order:     model.Order{Symbol: "AAPL", Side: types.OrderSideBuy, Status: types.OrderStatusFilled},
		},
		{Event: "new", Order: model.Order{Symbol: "TSLA", Status: types.OrderStatusNew}},
	}}
	bus := NewBus()
	sub := bus.Subscribe()
	m := metrics.New()
	relay := NewRelay(src, bus, m, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- relay.Run(ctx) }()

	first := <-sub
	require.Equal(t, "trade_update", first.Type)
	u, ok := first.Data.(Update)
	require.True(t, ok)
	assert.Equal(t, "fill", u.Event)
	assert.Equal(t, "AAPL", u.Symbol)
	assert.Equal(t, "buy", u.Side)
	assert.Equal(t, "187.31", u.Price)
	assert.Equal(t, "2", u.Qty)
	assert.Equal(t, "2024-03-01 14:30:00", u.Timestamp)
	assert.True(t, u.Reload)

	second := (<-sub).Data.(Update)
	assert.Equal(t, "new", second.Event)
	assert.False(t, second.Reload)
	assert.Empty(t, second.Price)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamEvents.WithLabelValues("fill")))
}
