package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paperdash/internal/model"
	"paperdash/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PKTEST", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "shh", r.Header.Get("APCA-API-SECRET-KEY"))
		h(w, r)
	}))
	t.Cleanup(server.Close)
	c, err := NewClient(ClientConfig{
		KeyID:           "PKTEST",
		SecretKey:       "shh",
		BaseURL:         server.URL + "/",
		RateLimitPerMin: 60000,
		HTTPClient:      &http.Client{Timeout: 5 * time.Second},
	})
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		_, err := NewClient(ClientConfig{KeyID: "PK"})
		assert.Error(t, err)
	})

	t.Run("refuses live host", func(t *testing.T) {
		_, err := NewClient(ClientConfig{KeyID: "PK", SecretKey: "s", BaseURL: LiveURL + "/"})
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		c, err := NewClient(ClientConfig{KeyID: "PK", SecretKey: "s"})
		require.NoError(t, err)
		assert.Equal(t, PaperURL, c.config.BaseURL)
		assert.Equal(t, 30*time.Second, c.config.Timeout)
		assert.Equal(t, 190, c.config.RateLimitPerMin)
		assert.NotNil(t, c.httpClient)
	})
}

func TestBaseURL(t *testing.T) {
	u, err := BaseURL("paper")
	require.NoError(t, err)
	assert.Equal(t, PaperURL, u)

	u, err = BaseURL("")
	require.NoError(t, err)
	assert.Equal(t, PaperURL, u)

	_, err = BaseURL("live")
	assert.Error(t, err)

	_, err = BaseURL("sandbox")
	assert.Error(t, err)
}

func TestCheckPaper(t *testing.T) {
	assert.NoError(t, CheckPaper(PaperURL))
	assert.NoError(t, CheckPaper(PaperStreamURL))
	assert.NoError(t, CheckPaper("http://127.0.0.1:9999"))
	assert.Error(t, CheckPaper(LiveURL))
	assert.Error(t, CheckPaper("wss://API.alpaca.markets:443/stream"))
	assert.Error(t, CheckPaper(""))
}

func TestStreamURL(t *testing.T) {
	assert.Equal(t, PaperStreamURL, StreamURL(PaperURL))
	assert.Equal(t, "ws://localhost:1234/stream", StreamURL("http://localhost:1234/"))
}

func TestGetAccount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/account", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"id": "904837e3-3b76-47ec-b432-046db621571b",
			"currency": "USD",
			"cash": "100000.12",
			"buying_power": "200000.24",
			"portfolio_value": "100500",
			"multiplier": "2",
			"pattern_day_trader": false,
			"trading_blocked": true,
			"transfers_blocked": false,
			"account_blocked": false
		}`)
	})

	acc, err := c.GetAccount(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "USD", acc.Currency)
	assert.True(t, acc.Cash.Equal(decimal.RequireFromString("100000.12")))
	assert.True(t, acc.BuyingPower.Equal(decimal.RequireFromString("200000.24")))
	assert.True(t, acc.TradingBlocked)
	assert.Equal(t, "904837e3-3b76-47ec-b432-046db621571b", acc.ID.String())
}

func TestListPositions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/positions", r.URL.Path)
		_, _ = io.WriteString(w, `[{"symbol":"BTCUSD","qty":"-2.5","market_value":"-150000.5","avg_entry_price":"60000","unrealized_pl":"-10","current_price":"60000.2","side":"short"}]`)
	})

	positions, err := c.ListPositions(context.Background())

	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "BTCUSD", positions[0].Symbol)
	assert.True(t, positions[0].Qty.Equal(decimal.RequireFromString("-2.5")))
}

func TestClosePosition_EscapesSymbol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v2/positions/BTC%2FUSD", r.URL.EscapedPath())
		_, _ = io.WriteString(w, `{"id":"61e69015-8549-4bfd-b9c3-01e75843f47d","symbol":"BTC/USD","status":"accepted"}`)
	})

	o, err := c.ClosePosition(context.Background(), "BTC/USD")

	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusAccepted, o.Status)
}

func TestCloseAllPositions_MultiStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("cancel_orders"))
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, `[{"symbol":"AAPL","status":200},{"symbol":"TSLA","status":403}]`)
	})

	results, err := c.CloseAllPositions(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, []model.ClosePositionResult{{Symbol: "AAPL", Status: 200}, {Symbol: "TSLA", Status: 403}}, results)
}

func TestSubmitOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BTC/USD", body["symbol"])
		assert.Equal(t, "0.5", body["qty"])
		assert.Equal(t, "buy", body["side"])
		assert.Equal(t, "market", body["type"])
		assert.Equal(t, "gtc", body["time_in_force"])
		assert.Equal(t, "trace-1", body["client_order_id"])
		_, _ = io.WriteString(w, `{"id":"61e69015-8549-4bfd-b9c3-01e75843f47d","symbol":"BTC/USD","qty":"0.5","filled_avg_price":null,"status":"pending_new","side":"buy","type":"market"}`)
	})

	o, err := c.SubmitOrder(context.Background(), model.OrderRequest{
		Symbol:        "BTC/USD",
		Qty:           decimal.RequireFromString("0.5"),
		Side:          types.OrderSideBuy,
		Type:          types.OrderTypeMarket,
		TimeInForce:   types.TimeInForceGTC,
		ClientOrderID: "trace-1",
	})

	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPendingNew, o.Status)
	assert.True(t, o.Qty.Valid)
	assert.False(t, o.FilledAvgPrice.Valid)
	assert.Nil(t, o.FilledAt)
}

func TestListOrders_Query(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 2, 23, 59, 59, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "all", q.Get("status"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("after"))
		assert.Equal(t, "2024-01-02T23:59:59Z", q.Get("until"))
		assert.Equal(t, "desc", q.Get("direction"))
		_, _ = io.WriteString(w, `[{"id":"61e69015-8549-4bfd-b9c3-01e75843f47d","symbol":"AAPL","submitted_at":"2024-01-01T15:04:05.123456Z","filled_at":"2024-01-01T15:04:06Z","filled_avg_price":"187.31","status":"filled"}]`)
	})

	orders, err := c.ListOrders(context.Background(), model.ListOrdersRequest{
		Status: types.QueryOrderStatusAll,
		After:  &after,
		Until:  &until,
		Limit:  100,
	})

	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].SubmittedAt)
	assert.Equal(t, 2024, orders[0].SubmittedAt.Year())
	assert.True(t, orders[0].FilledAvgPrice.Valid)
}

func TestCancelOrder_NoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v2/orders/61e69015-8549-4bfd-b9c3-01e75843f47d", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.CancelOrder(context.Background(), "61e69015-8549-4bfd-b9c3-01e75843f47d")

	assert.NoError(t, err)
}

func TestCancelAllOrders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/orders", r.URL.Path)
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, `[{"id":"61e69015-8549-4bfd-b9c3-01e75843f47d","status":200}]`)
	})

	results, err := c.CancelAllOrders(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 200, results[0].Status)
}

func TestAPIError(t *testing.T) {
	t.Run("vendor json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"code":42210000,"message":"order is not cancelable"}`)
		})

		err := c.CancelOrder(context.Background(), "x")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
		assert.Equal(t, 42210000, apiErr.Code)
		assert.Equal(t, "order is not cancelable", err.Error())
	})

	t.Run("plain body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, "forbidden\n")
		})

		_, err := c.GetAccount(context.Background())

		require.Error(t, err)
		assert.Equal(t, "forbidden", err.Error())
	})

	t.Run("empty body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := c.ListPositions(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetAccount(ctx)

	assert.Error(t, err)
}

func TestBlankIdentifiersNeverReachBulkEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	ctx := context.Background()

	_, err := c.ClosePosition(ctx, "")
	assert.EqualError(t, err, "symbol is required")
	_, err = c.ClosePosition(ctx, "  ")
	assert.EqualError(t, err, "symbol is required")
	assert.EqualError(t, c.CancelOrder(ctx, ""), "order id is required")
	assert.EqualError(t, c.CancelOrder(ctx, " \t"), "order id is required")
	_, err = c.GetOrder(ctx, "")
	assert.EqualError(t, err, "order id is required")
}

func TestAPIError_LongPlainBodyIsCapped(t *testing.T) {
	page := "<html><body>" + strings.Repeat("bad gateway ", 1000) + "</body></html>"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, page)
	})

	_, err := c.GetAccount(context.Background())

	require.Error(t, err)
	assert.LessOrEqual(t, len(err.Error()), maxErrorBody+3)
	assert.True(t, strings.HasPrefix(err.Error(), "<html><body>bad gateway"))
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	// never splits the two byte "é"
	assert.Equal(t, "a...", truncate("aé", 2))
}
