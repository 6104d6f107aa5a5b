package location

import (
	"math"

	"github.com/pkg/errors"

	"github.com/randytsao24/nearstation/internal/models"
)

// ServiceArea pairs a station catalog with the outliers bounding it
type ServiceArea struct {
	Name     string
	Catalog  *Catalog
	Outliers OutlierSet
}

// Areas is an ordered list of service areas
type Areas []*ServiceArea

// Classify returns the area whose closest outlier is nearest to loc.
// Earlier areas win ties.
func (a Areas) Classify(loc models.Coordinate) (*ServiceArea, bool) {
	var best *ServiceArea
	closest := math.Inf(1)
	for _, area := range a {
		if area == nil {
			continue
		}
		_, d := area.Outliers.Closest(loc)
		if d < closest {
			closest = d
			best = area
		}
	}
	return best, best != nil
}

// NewLoader returns the loader for a source format: kml, geojson or gtfs.
func NewLoader(format, path, nameProperty string, parentStationsOnly bool) (Loader, error) {
	switch format {
	case "kml":
		return &KMLLoader{Path: path}, nil
	case "geojson":
		return &GeoJSONLoader{Path: path, NameProperty: nameProperty}, nil
	case "gtfs":
		return &GTFSStopsLoader{Path: path, ParentStationsOnly: parentStationsOnly}, nil
	default:
		return nil, errors.Errorf("unknown station source format %q", format)
	}
}
