package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paperdash/internal/broker"
	"paperdash/internal/dashboard"
	"paperdash/internal/flash"
	"paperdash/internal/health"
	"paperdash/internal/journal"
	"paperdash/internal/metrics"
	"paperdash/internal/stream"
	"paperdash/internal/trading"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, auth BasicAuthConfig, bus *stream.Bus) *httptest.Server {
	t.Helper()
	svc := trading.NewService(broker.NewDisabledClient(), journal.NewMemoryStore(10), zerolog.Nop())
	deps := RouterDeps{
		Dashboard: dashboard.NewHandler(svc, flash.NewSigner([]byte("secret"), time.Minute), bus != nil, zerolog.Nop()),
		API:       dashboard.NewAPI(svc),
		Health:    health.NewHandler(health.Options{}),
		Metrics:   metrics.New(),
		BasicAuth: auth,
		RateLimit: RateLimitConfig{PerSecond: 1000, Burst: 1000},
		Logger:    zerolog.Nop(),
	}
	if bus != nil {
		deps.WSHandler = NewTradeUpdatesWSHandler(bus, "*", zerolog.Nop())
	}
	server := httptest.NewServer(NewRouter(deps))
	t.Cleanup(server.Close)
	return server
}

func TestRouter_DisabledBrokerStillRenders(t *testing.T) {
	server := newTestServer(t, BasicAuthConfig{}, nil)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	api, err := http.Get(server.URL + "/v1/positions")
	require.NoError(t, err)
	defer api.Body.Close()
	assert.Equal(t, http.StatusBadGateway, api.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(api.Body).Decode(&body))
	assert.Equal(t, "Error fetching positions: broker not configured", body["error"])
}

func TestRouter_BasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	server := newTestServer(t, BasicAuthConfig{User: "ops", PasswordHash: string(hash)}, nil)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	for _, creds := range [][2]string{{"ops", "wrong"}, {"root", "hunter2"}} {
		req, _ := http.NewRequest(http.MethodGet, server.URL+"/v1/account", nil)
		req.SetBasicAuth(creds[0], creds[1])
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/", nil)
	req.SetBasicAuth("ops", "hunter2")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// liveness stays open without credentials
	resp, err = http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_RejectsCrossSiteWrites(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	server := newTestServer(t, BasicAuthConfig{User: "ops", PasswordHash: string(hash)}, nil)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	post := func(path string, headers map[string]string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, server.URL+path, strings.NewReader(""))
		require.NoError(t, err)
		req.SetBasicAuth("ops", "hunter2")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	crossSite := []map[string]string{
		{"Origin": "https://evil.example", "Sec-Fetch-Site": "cross-site"},
		{"Sec-Fetch-Site": "same-site"},
		{"Origin": "https://evil.example"},
		{"Origin": "null"},
	}
	for _, path := range []string{"/actions/close-all", "/actions/buy", "/positions/close", "/orders/cancel", "/v1/positions/close"} {
		for _, h := range crossSite {
			resp := post(path, h)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode, path, h)
			assert.Empty(t, resp.Header.Get("Set-Cookie"), path, h)
		}
	}

	sameSite := []map[string]string{
		{"Origin": server.URL, "Sec-Fetch-Site": "same-origin"},
		{"Origin": server.URL},
		{},
	}
	for _, h := range sameSite {
		resp := post("/actions/close-all", h)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, h)
		assert.Contains(t, resp.Header.Get("Set-Cookie"), flash.CookieName, h)
	}
}

func TestRouter_Metrics(t *testing.T) {
	server := newTestServer(t, BasicAuthConfig{}, nil)
	resp, err := http.Get(server.URL + "/v1/account")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(b), `paperdash_http_requests_total{code="502",route="/v1/account"} 1`)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{PerSecond: 1, Burst: 2})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, rl.allow("10.0.0.1"))

	now = now.Add(10 * time.Minute)
	rl.allow("10.0.0.3")
	rl.mu.Lock()
	_, kept := rl.visitors["10.0.0.2"]
	rl.mu.Unlock()
	assert.False(t, kept)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{PerSecond: 0.001, Burst: 1})
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestAllowOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5173")
	assert.True(t, allowOrigin(req, "*"))
	assert.True(t, allowOrigin(req, "http://localhost:8080"))
	assert.False(t, allowOrigin(req, "https://dash.example.com"))

	req.Header.Set("Origin", "https://DASH.example.com")
	assert.True(t, allowOrigin(req, "https://dash.example.com"))
}

func TestAllowOrigin_DefaultsToSameOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://dash.example.com/ws", nil)

	assert.True(t, allowOrigin(req, ""), "no Origin header")

	req.Header.Set("Origin", "https://dash.example.com")
	assert.True(t, allowOrigin(req, ""))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, allowOrigin(req, ""))
}

func TestTradeUpdatesWS(t *testing.T) {
	bus := stream.NewBus()
	server := newTestServer(t, BasicAuthConfig{}, bus)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	bus.Publish(stream.Event{Type: "trade_update", Data: stream.Update{Event: "fill", Symbol: "AAPL", Reload: true}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt struct {
		Type string        `json:"type"`
		Data stream.Update `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, "trade_update", evt.Type)
	assert.Equal(t, "fill", evt.Data.Event)
	assert.True(t, evt.Data.Reload)

	conn.Close()
	assert.Eventually(t, func() bool { return bus.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
