// Package http is the read-mostly HTTP adapter over the tier engine. It
// translates date parameters into store lookups or pipeline runs and
// serializes explanations to JSON.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/optispark/tiercast/internal/config"
	"github.com/optispark/tiercast/internal/explain"
	"github.com/optispark/tiercast/internal/metrics"
	"github.com/optispark/tiercast/internal/persistence"
	"github.com/optispark/tiercast/internal/pipeline"
	"github.com/optispark/tiercast/internal/tier"
)

// Server hosts the tier API.
type Server struct {
	cfg       config.ServerConfig
	ticker    string
	router    *mux.Router
	server    *http.Server
	runner    *pipeline.Runner
	tiers     persistence.TierStore
	prices    persistence.PriceStore
	generator *explain.Generator
	metrics   *metrics.Registry
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewServer wires the routes and middleware. The prometheus registerer
// receives the engine's metric set and backs the /metrics endpoint.
func NewServer(cfg config.Config, runner *pipeline.Runner, tiers persistence.TierStore, prices persistence.PriceStore, reg *metrics.Registry, prom *prometheus.Registry, log zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg.Server,
		ticker:    cfg.Price.Ticker,
		router:    mux.NewRouter(),
		runner:    runner,
		tiers:     tiers,
		prices:    prices,
		generator: explain.NewGenerator(tier.DefaultStrengths),
		metrics:   reg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst),
		log:       log.With().Str("component", "http").Logger(),
	}

	s.router.Use(s.requestID, s.rateLimit, s.observe)

	s.router.HandleFunc("/v1/tiers/latest", s.handleLatest).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/tiers/{date}", s.handleByDate).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/compute", s.handleCompute).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(prom, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.Listen).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
