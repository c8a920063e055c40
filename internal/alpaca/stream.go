package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"paperdash/internal/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const streamTradeUpdates = "trade_updates"

type TradeUpdate struct {
	Event       string              `json:"event"`
	ExecutionID string              `json:"execution_id,omitempty"`
	Timestamp   *time.Time          `json:"timestamp,omitempty"`
	Price       decimal.NullDecimal `json:"price"`
	Qty         decimal.NullDecimal `json:"qty"`
	PositionQty decimal.NullDecimal `json:"position_qty"`
	Order       model.Order         `json:"order"`
}

type StreamConfig struct {
	URL            string
	KeyID          string
	SecretKey      string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
	Logger         zerolog.Logger
}

// Stream listens to the account's trade updates.
type Stream struct {
	cfg    StreamConfig
	logger zerolog.Logger
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type authorizationData struct {
	Action string `json:"action"`
	Status string `json:"status"`
}

func NewStream(cfg StreamConfig) *Stream {
	if cfg.URL == "" {
		cfg.URL = PaperStreamURL
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	return &Stream{cfg: cfg, logger: cfg.Logger.With().Str("component", "alpaca-stream").Logger()}
}

// Run delivers trade updates to fn until ctx is done, reconnecting after
// failures.
func (s *Stream) Run(ctx context.Context, fn func(TradeUpdate)) error {
	for {
		err := s.session(ctx, fn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn().Err(err).Dur("retry_in", s.cfg.ReconnectDelay).Msg("trade update stream disconnected")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

func (s *Stream) session(ctx context.Context, fn func(TradeUpdate)) error {
	conn, _, err := s.cfg.Dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	auth := map[string]any{
		"action": "authenticate",
		"data":   map[string]string{"key_id": s.cfg.KeyID, "secret_key": s.cfg.SecretKey},
	}
	if err := conn.WriteJSON(auth); err != nil {
		return err
	}
	if err := awaitAuthorization(conn); err != nil {
		return err
	}
	listen := map[string]any{
		"action": "listen",
		"data":   map[string][]string{"streams": {streamTradeUpdates}},
	}
	if err := conn.WriteJSON(listen); err != nil {
		return err
	}
	s.logger.Info().Str("url", s.cfg.URL).Msg("listening for trade updates")

	for {
		env, err := readEnvelope(conn)
		if err != nil {
			return err
		}
		if env.Stream != streamTradeUpdates {
			continue
		}
		var u TradeUpdate
		if err := json.Unmarshal(env.Data, &u); err != nil {
			s.logger.Warn().Err(err).Msg("undecodable trade update")
			continue
		}
		fn(u)
	}
}

func awaitAuthorization(conn *websocket.Conn) error {
	for {
		env, err := readEnvelope(conn)
		if err != nil {
			return err
		}
		if env.Stream != "authorization" {
			continue
		}
		var data authorizationData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return err
		}
		if data.Status != "authorized" {
			return fmt.Errorf("stream authorization %s", data.Status)
		}
		return nil
	}
}

// readEnvelope accepts text and binary frames; the paper endpoint sends binary.
func readEnvelope(conn *websocket.Conn) (streamEnvelope, error) {
	var env streamEnvelope
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return env, errors.New("malformed stream message")
	}
	return env, nil
}
