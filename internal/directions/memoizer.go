// Package directions memoizes route lookups from a paid directions API in the
// shared cache.
package directions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/randytsao24/nearstation/internal/cache"
	"github.com/randytsao24/nearstation/internal/metrics"
	"github.com/randytsao24/nearstation/internal/models"
)

const (
	DefaultTTL = 24 * time.Hour

	keyPrefix = "directions"
)

// ErrUnavailable means the provider could not be reached or returned an
// unusable response. Nothing is cached when it occurs.
var ErrUnavailable = errors.New("directions unavailable")

// Provider fetches a route between two points and returns the raw response body
type Provider interface {
	FetchDirections(ctx context.Context, origin, destination models.Coordinate, mode string) ([]byte, error)
}

// Memoizer is a cache-aside wrapper around a Provider
type Memoizer struct {
	store    cache.Store
	provider Provider
	metrics  metrics.Sink
	log      *zap.Logger
	ttl      time.Duration
}

// NewMemoizer creates a memoizer. A non-positive ttl uses DefaultTTL.
func NewMemoizer(store cache.Store, provider Provider, sink metrics.Sink, log *zap.Logger, ttl time.Duration) *Memoizer {
	if sink == nil {
		sink = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memoizer{
		store:    store,
		provider: provider,
		metrics:  sink,
		log:      log.Named("directions"),
		ttl:      ttl,
	}
}

// Key is the cache key for a route. start is normalized so it agrees with the
// station cache; end is the station position as stored in its result.
func Key(start models.Coordinate, end models.StationResult, mode string) string {
	s := start.Normalize()
	e := end.Coordinate()
	return cache.Key(keyPrefix, [2]float64{s.Lat, s.Lng}, [2]float64{e.Lat, e.Lng}, mode)
}

// Directions returns the provider's response for a route from start to the
// station in end, from cache when possible.
func (m *Memoizer) Directions(ctx context.Context, start models.Coordinate, end models.StationResult, mode string) (json.RawMessage, error) {
	if mode == "" {
		mode = DefaultMode
	}
	key := Key(start, end, mode)
	log := m.log.With(zap.String("key", key), zap.String("mode", mode))

	data, found, err := m.store.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn("cache read failed", zap.Error(err))
	case found && json.Valid(data):
		m.metrics.Inc(metrics.DirectionsCacheHits)
		return json.RawMessage(data), nil
	case found:
		log.Warn("discarding undecodable cache entry")
	}
	m.metrics.Inc(metrics.DirectionsCacheMisses)

	body, err := m.provider.FetchDirections(ctx, start.Normalize(), end.Coordinate(), mode)
	if err != nil {
		m.metrics.Inc(metrics.DirectionsFailures)
		log.Error("directions provider failed", zap.Error(err))
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	if !json.Valid(body) {
		m.metrics.Inc(metrics.DirectionsFailures)
		log.Error("directions provider returned invalid JSON", zap.Int("bytes", len(body)))
		return nil, errors.Wrap(ErrUnavailable, "invalid JSON from provider")
	}

	if err := m.store.Set(ctx, key, body, m.ttl); err != nil {
		log.Warn("failed to cache directions", zap.Error(err))
	}
	return json.RawMessage(body), nil
}
