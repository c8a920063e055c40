// Package alpaca implements broker.Client against the Alpaca trading REST API.
// Calls are rate limited and never retried; a retried order submission would
// place a second order.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"paperdash/internal/broker"
	"paperdash/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	PaperURL       = "https://paper-api.alpaca.markets"
	LiveURL        = "https://api.alpaca.markets"
	PaperStreamURL = "wss://paper-api.alpaca.markets/stream"
)

var _ broker.Client = (*Client)(nil)

// BaseURL resolves the REST endpoint for an environment name.
func BaseURL(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "paper":
		return PaperURL, nil
	case "live":
		return "", errors.New("live trading is not allowed")
	default:
		return "", fmt.Errorf("unknown alpaca env %q (want paper)", env)
	}
}

// CheckPaper refuses a base or stream URL that points at the live trading
// host. Other hosts (proxies, test servers) are allowed.
func CheckPaper(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid alpaca url %q", raw)
	}
	live, _ := url.Parse(LiveURL)
	if strings.EqualFold(u.Hostname(), live.Hostname()) {
		return errors.New("live trading is not allowed")
	}
	return nil
}

// StreamURL derives the trade update websocket endpoint from a REST base URL.
func StreamURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/stream"
}

type ClientConfig struct {
	KeyID     string
	SecretKey string

	// BaseURL defaults to PaperURL.
	BaseURL string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// RateLimitPerMin stays under the vendor's 200 requests per minute.
	RateLimitPerMin int

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

func ClientConfigDefaults() ClientConfig {
	return ClientConfig{
		BaseURL:         PaperURL,
		Timeout:         30 * time.Second,
		RateLimitPerMin: 190,
		Logger:          zerolog.Nop(),
	}
}

type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     zerolog.Logger
	limiter    *rate.Limiter
}

func NewClient(config ClientConfig) (*Client, error) {
	if config.KeyID == "" || config.SecretKey == "" {
		return nil, errors.New("alpaca key id and secret key are required")
	}
	applyDefaults(&config, ClientConfigDefaults())
	if err := CheckPaper(config.BaseURL); err != nil {
		return nil, err
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	rps := float64(config.RateLimitPerMin) / 60.0
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     config.Logger.With().Str("component", "alpaca-client").Logger(),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func applyDefaults(config *ClientConfig, defaults ClientConfig) {
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimitPerMin <= 0 {
		config.RateLimitPerMin = defaults.RateLimitPerMin
	}
}

// APIError is a non-2xx answer from the brokerage.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("alpaca http %d", e.StatusCode)
}

func (c *Client) GetAccount(ctx context.Context) (model.Account, error) {
	var acc model.Account
	err := c.do(ctx, http.MethodGet, "/v2/account", nil, nil, &acc)
	return acc, err
}

func (c *Client) ListPositions(ctx context.Context) ([]model.Position, error) {
	var out []model.Position
	if err := c.do(ctx, http.MethodGet, "/v2/positions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// maxErrorBody caps how much of a non-JSON error body becomes the message.
const maxErrorBody = 256

var (
	errNoSymbol  = errors.New("symbol is required")
	errNoOrderID = errors.New("order id is required")
)

func (c *Client) ClosePosition(ctx context.Context, symbol string) (model.Order, error) {
	var o model.Order
	if strings.TrimSpace(symbol) == "" {
		return o, errNoSymbol
	}
	err := c.do(ctx, http.MethodDelete, "/v2/positions/"+url.PathEscape(symbol), nil, nil, &o)
	return o, err
}

func (c *Client) CloseAllPositions(ctx context.Context, cancelOrders bool) ([]model.ClosePositionResult, error) {
	q := url.Values{}
	q.Set("cancel_orders", strconv.FormatBool(cancelOrders))
	var out []model.ClosePositionResult
	if err := c.do(ctx, http.MethodDelete, "/v2/positions", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	var o model.Order
	err := c.do(ctx, http.MethodPost, "/v2/orders", nil, req, &o)
	return o, err
}

func (c *Client) ListOrders(ctx context.Context, req model.ListOrdersRequest) ([]model.Order, error) {
	q := url.Values{}
	if req.Status != "" {
		q.Set("status", string(req.Status))
	}
	if req.After != nil {
		q.Set("after", req.After.UTC().Format(time.RFC3339))
	}
	if req.Until != nil {
		q.Set("until", req.Until.UTC().Format(time.RFC3339))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	q.Set("direction", "desc")
	var out []model.Order
	if err := c.do(ctx, http.MethodGet, "/v2/orders", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	if strings.TrimSpace(orderID) == "" {
		return o, errNoOrderID
	}
	err := c.do(ctx, http.MethodGet, "/v2/orders/"+url.PathEscape(orderID), nil, nil, &o)
	return o, err
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return errNoOrderID
	}
	return c.do(ctx, http.MethodDelete, "/v2/orders/"+url.PathEscape(orderID), nil, nil, nil)
}

func (c *Client) CancelAllOrders(ctx context.Context) ([]model.CancelResult, error) {
	var out []model.CancelResult
	if err := c.do(ctx, http.MethodDelete, "/v2/orders", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	target := c.config.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", c.config.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.config.SecretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("alpaca request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(b, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = truncate(strings.TrimSpace(string(b)), maxErrorBody)
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("alpaca http %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return apiErr
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
