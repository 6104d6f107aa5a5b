package location

import (
	"context"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/randytsao24/nearstation/internal/models"
)

// DefaultGeoJSONNameProperty is the feature property holding the station name
const DefaultGeoJSONNameProperty = "NAME"

// GeoJSONLoader reads point features from a GeoJSON FeatureCollection
type GeoJSONLoader struct {
	Path         string
	NameProperty string
}

func (l *GeoJSONLoader) Name() string { return "geojson:" + l.Path }

// Load parses the collection. Non-point or unnamed features are skipped.
func (l *GeoJSONLoader) Load(ctx context.Context) ([]models.Station, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, errors.Wrap(err, "reading GeoJSON file")
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing GeoJSON")
	}

	nameProp := l.NameProperty
	if nameProp == "" {
		nameProp = DefaultGeoJSONNameProperty
	}

	stations := make([]models.Station, 0, len(fc.Features))
	for _, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		name := strings.TrimSpace(f.Properties.MustString(nameProp, ""))
		if name == "" {
			continue
		}
		s := models.Station{Name: name, Lat: p.Lat(), Lng: p.Lon()}
		if s.Coordinate().Validate() != nil {
			continue
		}
		stations = append(stations, s)
	}

	if len(stations) == 0 {
		return nil, errors.Errorf("no named point features in %s", l.Path)
	}
	return stations, nil
}
