// Package main is the entry point for the nearstation server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/randytsao24/nearstation/internal/api"
	"github.com/randytsao24/nearstation/internal/api/handlers"
	"github.com/randytsao24/nearstation/internal/cache"
	"github.com/randytsao24/nearstation/internal/config"
	"github.com/randytsao24/nearstation/internal/directions"
	"github.com/randytsao24/nearstation/internal/logger"
	"github.com/randytsao24/nearstation/internal/metrics"
	"github.com/randytsao24/nearstation/internal/resolver"
)

const metricsLogInterval = time.Minute

func main() {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		Development: cfg.IsDevelopment(),
		MaxBackups:  5,
		MaxAgeDays:  30,
		Compress:    true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Logger error:", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	start := time.Now()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	areasCfg, err := config.LoadServiceAreas(cfg.ServiceAreasFile)
	if err != nil {
		return err
	}
	areas, err := buildAreas(ctx, log, areasCfg)
	if err != nil {
		return err
	}

	counters := metrics.NewCounters()
	engine := resolver.New(store, counters, log, resolver.Options{
		LockTTL:               cfg.LockTTL,
		ResultTTL:             cfg.ResultTTL,
		Backoff:               cfg.RetryBackoff,
		MaxAttempts:           cfg.RetryAttempts,
		DistantThresholdMiles: cfg.DistantThresholdMiles,
	})

	provider := directions.NewGoogleProvider(cfg.GoogleMapsAPIKey, cfg.HTTPTimeout)
	var finder *directions.Memoizer
	if provider.HasAPIKey() {
		finder = directions.NewMemoizer(store, provider, counters, log, cfg.ResultTTL)
	} else {
		log.Warn("GOOGLE_MAPS_API_KEY not set, directions disabled")
	}
	if !cfg.AuthEnabled() {
		log.Warn("VALID_API_KEYS not set, /nearest_station is unauthenticated")
	}

	var dirs handlers.DirectionsFinder
	if finder != nil {
		dirs = finder
	}
	router := api.NewRouter(cfg, log, areas, engine, dirs, counters)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HTTPTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go logMetrics(ctx, counters, log)

	log.Info("nearstation server starting",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("cache", cfg.CacheBackend),
		zap.Int("service_areas", len(areas)),
		zap.Duration("startup", time.Since(start).Round(time.Millisecond)),
	)
	return serve(ctx, server, log)
}

// serve blocks until the server fails or ctx is cancelled, then drains
// in-flight requests.
func serve(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.Store, func(), error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return r, func() { _ = r.Close() }, nil
	}

	log.Warn("using in-memory cache; locks only cover this process")
	m := cache.NewMemory(time.Minute)
	return m, func() { _ = m.Close() }, nil
}

func logMetrics(ctx context.Context, counters *metrics.Counters, log *zap.Logger) {
	t := time.NewTicker(metricsLogInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			counters.Log(log)
		}
	}
}
