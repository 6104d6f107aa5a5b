// Package resolver finds the nearest station to a coordinate, memoizing results
// in the shared cache and using a lock in that cache so concurrent identical
// requests compute at most once.
package resolver

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/randytsao24/nearstation/internal/cache"
	"github.com/randytsao24/nearstation/internal/location"
	"github.com/randytsao24/nearstation/internal/metrics"
	"github.com/randytsao24/nearstation/internal/models"
)

const (
	DefaultLockTTL     = 10 * time.Second
	DefaultResultTTL   = 24 * time.Hour
	DefaultBackoff     = 500 * time.Millisecond
	DefaultMaxAttempts = 3

	stationKeyPrefix = "station"
)

var (
	// ErrRetryExhausted means another resolver held the lock for every attempt.
	// The caller should retry shortly; nothing failed.
	ErrRetryExhausted = errors.New("nearest station is being computed by another request")

	// ErrEmptyCatalog means there are no stations to choose from. This is a
	// data or configuration fault, not contention.
	ErrEmptyCatalog = errors.New("station catalog is empty")

	// ErrInvalidCoordinate is returned for non-finite or out-of-range input.
	ErrInvalidCoordinate = models.ErrInvalidCoordinate
)

// Outcome tells how a Resolution was produced
type Outcome int

const (
	// OutcomeComputed means this call scanned the catalog.
	OutcomeComputed Outcome = iota
	// OutcomeCached means the result came from the shared cache.
	OutcomeCached
	// OutcomeDistant means the location is outside the service area and the
	// result is the closest boundary station, not the true nearest.
	OutcomeDistant
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComputed:
		return "computed"
	case OutcomeCached:
		return "cached"
	case OutcomeDistant:
		return "distant"
	default:
		return "unknown"
	}
}

// Resolution is the result of one Resolve call
type Resolution struct {
	Outcome        Outcome
	Result         models.StationResult
	Location       models.Coordinate
	NearestOutlier location.OutlierName
	Area           string
}

// Options tune locking and caching
type Options struct {
	LockTTL               time.Duration
	ResultTTL             time.Duration
	Backoff               time.Duration
	MaxAttempts           int
	DistantThresholdMiles float64
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		LockTTL:               DefaultLockTTL,
		ResultTTL:             DefaultResultTTL,
		Backoff:               DefaultBackoff,
		MaxAttempts:           DefaultMaxAttempts,
		DistantThresholdMiles: location.DefaultDistantThresholdMiles,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LockTTL <= 0 {
		o.LockTTL = d.LockTTL
	}
	if o.ResultTTL <= 0 {
		o.ResultTTL = d.ResultTTL
	}
	if o.Backoff <= 0 {
		o.Backoff = d.Backoff
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.DistantThresholdMiles <= 0 {
		o.DistantThresholdMiles = d.DistantThresholdMiles
	}
	return o
}

// Engine resolves coordinates to stations. It holds no mutable state; all
// coordination between concurrent callers goes through the store.
type Engine struct {
	store   cache.Store
	metrics metrics.Sink
	log     *zap.Logger
	opts    Options
}

// New creates an engine. A nil sink or logger disables that output.
func New(store cache.Store, sink metrics.Sink, log *zap.Logger, opts Options) *Engine {
	if sink == nil {
		sink = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:   store,
		metrics: sink,
		log:     log.Named("resolver"),
		opts:    opts.withDefaults(),
	}
}

// StationKey is the cache key for the nearest station to a normalized location.
func StationKey(loc models.Coordinate) string {
	return cache.Key(stationKeyPrefix, loc.Lat, loc.Lng)
}

// Resolve returns the nearest station in area to raw.
//
// Locations farther than the distant threshold from every outlier of the area
// short-circuit to the closest outlier. Otherwise the shared cache is checked,
// and on a miss the caller races for lock:<key>; the winner scans the catalog
// and populates the cache while losers back off and re-check the cache.
// Cache failures degrade to computing without the cache.
func (e *Engine) Resolve(ctx context.Context, raw models.Coordinate, area *location.ServiceArea) (*Resolution, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	loc := raw.Normalize()

	if area == nil {
		e.log.Error("no service area for location", zap.Float64("lat", loc.Lat), zap.Float64("lng", loc.Lng))
		return nil, ErrEmptyCatalog
	}

	outlier, outlierMiles := area.Outliers.Closest(loc)
	if outlierMiles > e.opts.DistantThresholdMiles {
		e.metrics.Inc(metrics.DistantLocations)
		return &Resolution{
			Outcome:        OutcomeDistant,
			Result:         models.NewStationResult(area.Outliers.Station(outlier), outlierMiles),
			Location:       loc,
			NearestOutlier: outlier,
			Area:           area.Name,
		}, nil
	}

	key := StationKey(loc)
	log := e.log.With(
		zap.String("area", area.Name),
		zap.Float64("lat", loc.Lat),
		zap.Float64("lng", loc.Lng),
		zap.String("key", key),
	)
	res := &Resolution{Location: loc, NearestOutlier: outlier, Area: area.Name}

	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		if result, ok := e.lookup(ctx, key, log); ok {
			e.metrics.Inc(metrics.CacheHits)
			res.Outcome, res.Result = OutcomeCached, result
			return res, nil
		}
		if attempt == 1 {
			e.metrics.Inc(metrics.CacheMisses)
		}

		token := uuid.NewString()
		acquired, err := e.store.CreateIfAbsent(ctx, cache.LockKey(key), []byte(token), e.opts.LockTTL)
		if err != nil {
			log.Warn("lock unavailable, computing without it", zap.Error(err))
			return e.compute(ctx, key, loc, area, res, log)
		}
		if acquired {
			return e.computeLocked(ctx, key, loc, area, res, log)
		}

		e.metrics.Inc(metrics.LockContention)
		log.Debug("lock held elsewhere", zap.Int("attempt", attempt))
		if attempt < e.opts.MaxAttempts {
			if err := sleep(ctx, e.opts.Backoff); err != nil {
				return nil, errors.Wrap(err, "waiting for lock")
			}
		}
	}

	log.Info("gave up waiting for lock", zap.Int("attempts", e.opts.MaxAttempts))
	return nil, ErrRetryExhausted
}

// computeLocked runs compute while holding lock:<key> and always releases it.
func (e *Engine) computeLocked(ctx context.Context, key string, loc models.Coordinate, area *location.ServiceArea, res *Resolution, log *zap.Logger) (*Resolution, error) {
	defer func() {
		// release even if the request was cancelled mid-scan
		if err := e.store.Delete(context.WithoutCancel(ctx), cache.LockKey(key)); err != nil {
			log.Warn("failed to release lock", zap.Error(err))
		}
	}()
	return e.compute(ctx, key, loc, area, res, log)
}

func (e *Engine) compute(ctx context.Context, key string, loc models.Coordinate, area *location.ServiceArea, res *Resolution, log *zap.Logger) (*Resolution, error) {
	// another holder may have populated the key between our lookup and lock
	if result, ok := e.lookup(ctx, key, log); ok {
		e.metrics.Inc(metrics.CacheHits)
		res.Outcome, res.Result = OutcomeCached, result
		return res, nil
	}

	e.metrics.Inc(metrics.FullScans)
	result, err := nearest(loc, area.Catalog)
	if err != nil {
		log.Error("nearest station computation failed", zap.Int("stations", area.Catalog.Len()), zap.Error(err))
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Error("failed to encode result for cache", zap.Error(err))
	} else if err := e.store.Set(ctx, key, payload, e.opts.ResultTTL); err != nil {
		log.Warn("failed to cache result", zap.Error(err))
	}

	res.Outcome, res.Result = OutcomeComputed, result
	return res, nil
}

// lookup reads key from the store. Errors and undecodable payloads count as
// a miss.
func (e *Engine) lookup(ctx context.Context, key string, log *zap.Logger) (models.StationResult, bool) {
	data, found, err := e.store.Get(ctx, key)
	if err != nil {
		log.Warn("cache read failed", zap.Error(err))
		return models.StationResult{}, false
	}
	if !found {
		return models.StationResult{}, false
	}

	var result models.StationResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Warn("discarding undecodable cache entry", zap.Error(err))
		return models.StationResult{}, false
	}
	return result, true
}

// nearest scans every station; the first station at the minimum distance wins.
func nearest(loc models.Coordinate, catalog *location.Catalog) (models.StationResult, error) {
	var best models.Station
	closest := math.Inf(1)
	found := false

	for s := range catalog.All() {
		d := location.Distance(loc, s.Coordinate())
		if d < closest {
			closest = d
			best = s
			found = true
		}
	}

	if !found {
		return models.StationResult{}, ErrEmptyCatalog
	}
	return models.NewStationResult(best, closest), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
