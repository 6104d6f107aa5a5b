// Package location handles station data, distances and service-area bounds
package location

import (
	"context"
	"iter"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/nearstation/internal/models"
)

const maxConcurrentLoaders = 4

// Loader produces stations from one external source
type Loader interface {
	Name() string
	Load(ctx context.Context) ([]models.Station, error)
}

// Catalog is an ordered, read-only set of stations
type Catalog struct {
	stations []models.Station
}

// NewCatalog creates a catalog holding a copy of stations.
func NewCatalog(stations []models.Station) *Catalog {
	return &Catalog{stations: slices.Clone(stations)}
}

// BuildCatalog runs every loader and concatenates their stations in loader
// order. A loader that fails is logged and contributes nothing.
func BuildCatalog(ctx context.Context, log *zap.Logger, loaders ...Loader) *Catalog {
	results := make([][]models.Station, len(loaders))

	var g errgroup.Group
	g.SetLimit(maxConcurrentLoaders)
	for i, l := range loaders {
		g.Go(func() error {
			stations, err := l.Load(ctx)
			if err != nil {
				log.Error("station source failed to load",
					zap.String("source", l.Name()),
					zap.Error(err),
				)
				return nil
			}
			log.Info("station source loaded",
				zap.String("source", l.Name()),
				zap.Int("stations", len(stations)),
			)
			results[i] = stations
			return nil
		})
	}
	_ = g.Wait()

	return &Catalog{stations: slices.Concat(results...)}
}

// All iterates stations in catalog order.
func (c *Catalog) All() iter.Seq[models.Station] {
	return func(yield func(models.Station) bool) {
		if c == nil {
			return
		}
		for _, s := range c.stations {
			if !yield(s) {
				return
			}
		}
	}
}

// Len returns the number of stations
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stations)
}
