package main

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/randytsao24/nearstation/internal/config"
	"github.com/randytsao24/nearstation/internal/location"
)

// buildAreas loads the outliers and station catalog of every configured area.
// A missing or invalid outliers file is fatal; an unreadable station source
// only shrinks its catalog.
func buildAreas(ctx context.Context, log *zap.Logger, cfg *config.AreasConfig) (location.Areas, error) {
	areas := make(location.Areas, 0, len(cfg.ServiceAreas))
	for _, ac := range cfg.ServiceAreas {
		outliers, err := location.LoadOutliers(ac.Outliers)
		if err != nil {
			return nil, errors.Wrapf(err, "service area %s", ac.Name)
		}

		loaders := make([]location.Loader, 0, len(ac.Sources))
		for _, src := range ac.Sources {
			l, err := location.NewLoader(src.Format, src.Path, src.NameProperty, src.ParentStationsOnly)
			if err != nil {
				return nil, errors.Wrapf(err, "service area %s", ac.Name)
			}
			loaders = append(loaders, l)
		}

		catalog := location.BuildCatalog(ctx, log.With(zap.String("area", ac.Name)), loaders...)
		if catalog.Len() == 0 {
			log.Warn("service area has no stations", zap.String("area", ac.Name))
		}
		log.Info("service area loaded", zap.String("area", ac.Name), zap.Int("stations", catalog.Len()))

		areas = append(areas, &location.ServiceArea{
			Name:     ac.Name,
			Catalog:  catalog,
			Outliers: outliers,
		})
	}
	return areas, nil
}
