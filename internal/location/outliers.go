package location

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/randytsao24/nearstation/internal/models"
)

// DefaultDistantThresholdMiles is how far a location may be from the closest
// outlier before it is treated as outside the service area.
const DefaultDistantThresholdMiles = 200.0

// OutlierName identifies one of the four extreme stations of a service area
type OutlierName string

const (
	Northernmost OutlierName = "northernmost"
	Southernmost OutlierName = "southernmost"
	Easternmost  OutlierName = "easternmost"
	Westernmost  OutlierName = "westernmost"
)

// OutlierOrder is the fixed enumeration order; earlier names win ties.
var OutlierOrder = [4]OutlierName{Northernmost, Southernmost, Easternmost, Westernmost}

// OutlierSet holds the extreme-position stations of one service area
type OutlierSet struct {
	Northernmost models.Station `json:"northernmost"`
	Southernmost models.Station `json:"southernmost"`
	Easternmost  models.Station `json:"easternmost"`
	Westernmost  models.Station `json:"westernmost"`
}

// Station returns the outlier registered under name.
func (o OutlierSet) Station(name OutlierName) models.Station {
	switch name {
	case Northernmost:
		return o.Northernmost
	case Southernmost:
		return o.Southernmost
	case Easternmost:
		return o.Easternmost
	default:
		return o.Westernmost
	}
}

// Closest returns the outlier nearest to loc and its distance in miles.
func (o OutlierSet) Closest(loc models.Coordinate) (OutlierName, float64) {
	best := OutlierOrder[0]
	closest := math.Inf(1)
	for _, name := range OutlierOrder {
		d := Distance(loc, o.Station(name).Coordinate())
		if d < closest {
			closest = d
			best = name
		}
	}
	return best, closest
}

// IsDistant reports whether loc is farther than thresholdMiles from every
// outlier, along with the closest outlier regardless of the verdict.
// A location exactly at the threshold is not distant.
func IsDistant(loc models.Coordinate, outliers OutlierSet, thresholdMiles float64) (bool, OutlierName) {
	name, d := outliers.Closest(loc)
	return d > thresholdMiles, name
}

// LoadOutliers reads an outlier record written by FindOutermost.
func LoadOutliers(path string) (OutlierSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OutlierSet{}, errors.Wrap(err, "reading outliers file")
	}

	var raw map[OutlierName]*models.Station
	if err := json.Unmarshal(data, &raw); err != nil {
		return OutlierSet{}, errors.Wrap(err, "parsing outliers JSON")
	}

	for _, name := range OutlierOrder {
		s, ok := raw[name]
		if !ok || s == nil {
			return OutlierSet{}, errors.Errorf("outliers file %s is missing %q", path, name)
		}
		if err := s.Coordinate().Validate(); err != nil {
			return OutlierSet{}, errors.Wrapf(err, "outlier %q", name)
		}
	}

	return OutlierSet{
		Northernmost: *raw[Northernmost],
		Southernmost: *raw[Southernmost],
		Easternmost:  *raw[Easternmost],
		Westernmost:  *raw[Westernmost],
	}, nil
}

// FindOutermost picks the northernmost, southernmost, easternmost and
// westernmost stations. The first station seen wins ties.
func FindOutermost(stations []models.Station) (OutlierSet, error) {
	if len(stations) == 0 {
		return OutlierSet{}, errors.New("no stations to scan")
	}

	set := OutlierSet{
		Northernmost: stations[0],
		Southernmost: stations[0],
		Easternmost:  stations[0],
		Westernmost:  stations[0],
	}
	for _, s := range stations[1:] {
		if s.Lat > set.Northernmost.Lat {
			set.Northernmost = s
		}
		if s.Lat < set.Southernmost.Lat {
			set.Southernmost = s
		}
		if s.Lng > set.Easternmost.Lng {
			set.Easternmost = s
		}
		if s.Lng < set.Westernmost.Lng {
			set.Westernmost = s
		}
	}
	return set, nil
}
