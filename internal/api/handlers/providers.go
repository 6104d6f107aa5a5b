package handlers

import (
	"context"
	"encoding/json"

	"github.com/randytsao24/nearstation/internal/location"
	"github.com/randytsao24/nearstation/internal/metrics"
	"github.com/randytsao24/nearstation/internal/models"
	"github.com/randytsao24/nearstation/internal/resolver"
)

// StationResolver abstracts the nearest-station engine for testability.
type StationResolver interface {
	Resolve(ctx context.Context, raw models.Coordinate, area *location.ServiceArea) (*resolver.Resolution, error)
}

// DirectionsFinder abstracts the directions source.
type DirectionsFinder interface {
	Directions(ctx context.Context, start models.Coordinate, end models.StationResult, mode string) (json.RawMessage, error)
}

// AreaClassifier picks the service area for a location.
type AreaClassifier interface {
	Classify(loc models.Coordinate) (*location.ServiceArea, bool)
}

// MetricsSource exposes counter values.
type MetricsSource interface {
	Snapshot() map[metrics.Counter]int64
}
