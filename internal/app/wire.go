// Package app assembles the brokerage client and journal from configuration.
// Both binaries share it.
package app

import (
	"context"
	"errors"

	"paperdash/internal/alpaca"
	"paperdash/internal/broker"
	"paperdash/internal/config"
	"paperdash/internal/db"
	"paperdash/internal/journal"
	"paperdash/internal/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// LoadEnv reads .env then .env.local when present. Variables already set in
// the process environment win.
func LoadEnv() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// NewBroker returns the Alpaca client, or a DisabledClient in development
// when credentials are missing. m may be nil.
func NewBroker(cfg config.Config, m *metrics.Metrics, log zerolog.Logger) (broker.Client, error) {
	var client broker.Client
	if cfg.BrokerConfigured() {
		c, err := alpaca.NewClient(alpaca.ClientConfig{
			KeyID:           cfg.AlpacaKeyID,
			SecretKey:       cfg.AlpacaSecretKey,
			BaseURL:         cfg.AlpacaBaseURL,
			RateLimitPerMin: cfg.AlpacaRateLimitPerMin,
			Timeout:         cfg.BrokerTimeout,
			Logger:          log,
		})
		if err != nil {
			return nil, err
		}
		client = c
	} else {
		if cfg.Production() {
			return nil, errors.New("alpaca credentials are required in production")
		}
		log.Warn().Msg("ALPACA_API_KEY_ID / ALPACA_API_SECRET_KEY not set; brokerage calls are disabled")
		client = broker.NewDisabledClient()
	}
	if m != nil {
		client = metrics.InstrumentBroker(client, m)
	}
	return broker.WithTimeout(client, cfg.BrokerTimeout), nil
}

// NewJournal opens the Postgres journal when JOURNAL_DSN is set and falls
// back to memory otherwise. The returned pool is nil for the memory journal.
func NewJournal(ctx context.Context, cfg config.Config) (journal.Store, *pgxpool.Pool, error) {
	if cfg.JournalDSN == "" {
		return journal.NewMemoryStore(journal.DefaultCapacity), nil, nil
	}
	pool, err := db.NewPool(ctx, cfg.JournalDSN)
	if err != nil {
		return nil, nil, err
	}
	store, err := journal.NewPGStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}
