package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paperdash/internal/alpaca"
	"paperdash/internal/app"
	"paperdash/internal/config"
	"paperdash/internal/dashboard"
	"paperdash/internal/flash"
	"paperdash/internal/health"
	"paperdash/internal/httpserver"
	"paperdash/internal/logging"
	"paperdash/internal/metrics"
	"paperdash/internal/stream"
	"paperdash/internal/trading"
)

func main() {
	startedAt := time.Now()
	app.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", "json")
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client, err := app.NewBroker(cfg, m, log)
	if err != nil {
		log.Fatal().Err(err).Msg("broker")
	}
	store, pool, err := app.NewJournal(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("journal")
	}
	if pool != nil {
		defer pool.Close()
	}

	secret := []byte(cfg.FlashSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatal().Err(err).Msg("flash secret")
		}
		log.Warn().Msg("FLASH_SECRET not set; using a random key, flash messages do not survive restarts")
	}

	svc := trading.NewService(client, store, log)
	streamOn := cfg.StreamEnabled && cfg.BrokerConfigured()
	if cfg.StreamEnabled && !streamOn {
		log.Warn().Msg("STREAM_ENABLED ignored without alpaca credentials")
	}

	var bus *stream.Bus
	var wsHandler http.Handler
	if streamOn {
		bus = stream.NewBus()
		wsHandler = httpserver.NewTradeUpdatesWSHandler(bus, cfg.WebSocketOrigin, log)
		src := alpaca.NewStream(alpaca.StreamConfig{
			URL:       cfg.AlpacaStreamURL,
			KeyID:     cfg.AlpacaKeyID,
			SecretKey: cfg.AlpacaSecretKey,
			Logger:    log,
		})
		relay := stream.NewRelay(src, bus, m, log)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("trade update relay stopped")
			}
		}()
	}

	healthOpts := health.Options{
		Pool:             pool,
		StartedAt:        startedAt,
		Mode:             cfg.Mode,
		HTTPAddr:         cfg.HTTPAddr,
		BrokerConfigured: cfg.BrokerConfigured(),
		StreamEnabled:    streamOn,
	}
	if bus != nil {
		healthOpts.StreamClients = bus.Subscribers
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Dashboard: dashboard.NewHandler(svc, flash.NewSigner(secret, cfg.FlashTTL), streamOn, log),
		API:       dashboard.NewAPI(svc),
		Health:    health.NewHandler(healthOpts),
		Metrics:   m,
		WSHandler: wsHandler,
		BasicAuth: httpserver.BasicAuthConfig{User: cfg.DashboardUser, PasswordHash: cfg.DashboardPasswordHash},
		Logger:    log,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("mode", cfg.Mode).
		Str("alpaca", cfg.AlpacaBaseURL).
		Bool("stream", streamOn).
		Bool("basic_auth", cfg.DashboardUser != "").
		Msg("dashboard listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server")
	}
}
