// Package metrics provides request and cache counters behind an injectable sink
package metrics

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Counter names a tally
type Counter string

const (
	APICalls              Counter = "api_calls"
	SuccessfulResponses   Counter = "successful_responses"
	FailedResponses       Counter = "failed_responses"
	CacheHits             Counter = "cache_hits"
	CacheMisses           Counter = "cache_misses"
	FullScans             Counter = "full_scans"
	LockContention        Counter = "lock_contention"
	DistantLocations      Counter = "distant_locations"
	DirectionsCacheHits   Counter = "directions_cache_hits"
	DirectionsCacheMisses Counter = "directions_cache_misses"
	DirectionsFailures    Counter = "directions_failures"
)

// All lists every counter in reporting order.
var All = []Counter{
	APICalls,
	SuccessfulResponses,
	FailedResponses,
	CacheHits,
	CacheMisses,
	FullScans,
	LockContention,
	DistantLocations,
	DirectionsCacheHits,
	DirectionsCacheMisses,
	DirectionsFailures,
}

// Sink receives counter increments
type Sink interface {
	Inc(c Counter)
}

// Nop discards increments
type Nop struct{}

func (Nop) Inc(Counter) {}

// Counters is a process-wide Sink backed by atomics
type Counters struct {
	values map[Counter]*atomic.Int64
}

var _ Sink = (*Counters)(nil)

// NewCounters creates a zeroed tally for every known counter.
func NewCounters() *Counters {
	values := make(map[Counter]*atomic.Int64, len(All))
	for _, c := range All {
		values[c] = new(atomic.Int64)
	}
	return &Counters{values: values}
}

// Inc adds one to c. Unknown counters are ignored.
func (c *Counters) Inc(counter Counter) {
	if v, ok := c.values[counter]; ok {
		v.Add(1)
	}
}

// Get returns the current value of counter
func (c *Counters) Get(counter Counter) int64 {
	if v, ok := c.values[counter]; ok {
		return v.Load()
	}
	return 0
}

// Snapshot copies all current values
func (c *Counters) Snapshot() map[Counter]int64 {
	out := make(map[Counter]int64, len(c.values))
	for name, v := range c.values {
		out[name] = v.Load()
	}
	return out
}

// Log writes the current values at debug level
func (c *Counters) Log(log *zap.Logger) {
	fields := make([]zap.Field, 0, len(All))
	for _, name := range All {
		fields = append(fields, zap.Int64(string(name), c.Get(name)))
	}
	log.Debug("metrics", fields...)
}
