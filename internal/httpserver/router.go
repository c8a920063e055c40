package httpserver

import (
	"net/http"

	"paperdash/internal/dashboard"
	"paperdash/internal/health"
	"paperdash/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Dashboard *dashboard.Handler
	API       *dashboard.API
	Health    *health.Handler
	Metrics   *metrics.Metrics
	// WSHandler is nil when the trade update relay is disabled.
	WSHandler http.Handler
	BasicAuth BasicAuthConfig
	RateLimit RateLimitConfig
	Logger    zerolog.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer(d.Logger))
	r.Use(RequestLogger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(SecurityHeaders)
	r.Use(NewRateLimiter(d.RateLimit).Middleware)

	r.Get("/health", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	r.Group(func(r chi.Router) {
		r.Use(BasicAuth(d.BasicAuth))
		r.Use(SameOriginWrites)
		r.Get("/health/details", d.Health.Full)
		if d.Metrics != nil {
			r.Handle("/metrics", d.Metrics.Handler())
		}

		r.Get("/", d.Dashboard.Page)
		r.Post("/actions/buy", d.Dashboard.Buy)
		r.Post("/actions/sell", d.Dashboard.Sell)
		r.Post("/actions/close-all", d.Dashboard.CloseAll)
		r.Post("/actions/cancel-all", d.Dashboard.CancelAll)
		r.Post("/positions/close", d.Dashboard.ClosePosition)
		r.Post("/orders/cancel", d.Dashboard.CancelOrder)

		if d.WSHandler != nil {
			r.Get("/ws", d.WSHandler.ServeHTTP)
		}
		r.Route("/v1", d.API.Routes)
	})
	return r
}
