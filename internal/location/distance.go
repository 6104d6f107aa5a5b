package location

import (
	"github.com/tidwall/geodesic"

	"github.com/randytsao24/nearstation/internal/models"
)

const metersPerMile = 1609.344

// Distance returns the WGS84 geodesic distance in miles between two points.
// Callers must validate coordinates first; NaN in gives NaN out.
func Distance(a, b models.Coordinate) float64 {
	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lng, b.Lat, b.Lng, &meters, nil, nil)
	return MetersToMiles(meters)
}

// MetersToMiles converts meters to miles
func MetersToMiles(meters float64) float64 {
	return meters / metersPerMile
}
