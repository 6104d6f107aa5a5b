package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/randytsao24/nearstation/internal/api/handlers"
	"github.com/randytsao24/nearstation/internal/config"
	"github.com/randytsao24/nearstation/internal/metrics"
)

const defaultTimeout = 15 * time.Second

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(
	cfg *config.Config,
	log *zap.Logger,
	areas handlers.AreaClassifier,
	resolver handlers.StationResolver,
	directions handlers.DirectionsFinder,
	counters *metrics.Counters,
) http.Handler {
	if counters == nil {
		counters = metrics.NewCounters()
	}
	mux := http.NewServeMux()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	rootHandler := handlers.NewRootHandler()
	metricsHandler := handlers.NewMetricsHandler(counters)
	stationHandler := handlers.NewStationHandler(resolver, directions, areas, counters, log, cfg.DirectionsMode)

	// Core routes
	mux.HandleFunc("GET /{$}", rootHandler.Index)
	mux.HandleFunc("GET /api", rootHandler.Index)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /metrics", metricsHandler.Metrics)

	// Station lookup
	mux.Handle("POST /nearest_station", APIKey(cfg.ValidAPIKeys)(http.HandlerFunc(stationHandler.NearestStation)))

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Apply middleware stack
	handler := Chain(mux,
		Recovery(log),
		RequestID,
		Logging(log),
		CORS,
		SecurityHeaders,
		MaxBytes(MaxRequestBytes),
		Timeout(timeout),
	)

	return handler
}
