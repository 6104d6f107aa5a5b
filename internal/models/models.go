// Package models defines shared data types
package models

import (
	"math"

	"github.com/pkg/errors"
)

// CoordinatePrecision is the number of decimal places kept by Normalize.
// Four places is roughly 11m at mid-latitudes.
const CoordinatePrecision = 4

var precisionScale = math.Pow(10, CoordinatePrecision)

// ErrInvalidCoordinate is returned for non-finite or out-of-range input.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a latitude/longitude pair in decimal degrees
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Validate rejects coordinates that must never reach distance computation.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return errors.Wrapf(ErrInvalidCoordinate, "latitude %v", c.Lat)
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return errors.Wrapf(ErrInvalidCoordinate, "longitude %v", c.Lng)
	}
	return nil
}

// Normalize rounds both components to CoordinatePrecision decimal places so
// near-duplicate requests share a cache entry.
func (c Coordinate) Normalize() Coordinate {
	return Coordinate{
		Lat: math.Round(c.Lat*precisionScale) / precisionScale,
		Lng: math.Round(c.Lng*precisionScale) / precisionScale,
	}
}

// Station is an immutable transit station record
type Station struct {
	Name string  `json:"name"`
	Lat  float64 `json:"latitude"`
	Lng  float64 `json:"longitude"`
}

// Coordinate returns the station position.
func (s Station) Coordinate() Coordinate {
	return Coordinate{Lat: s.Lat, Lng: s.Lng}
}

// PointGeometry is a GeoJSON point; Coordinates are [lng, lat].
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// StationProperties carries the station name and its distance from the query
type StationProperties struct {
	Name          string  `json:"name"`
	DistanceMiles float64 `json:"distance_miles"`
}

// StationResult is the GeoJSON feature returned to callers and stored in cache
type StationResult struct {
	Type       string            `json:"type"`
	Geometry   PointGeometry     `json:"geometry"`
	Properties StationProperties `json:"properties"`
}

// NewStationResult builds the feature for a station at the given distance.
// Negative distances are clamped to zero.
func NewStationResult(s Station, distanceMiles float64) StationResult {
	if distanceMiles < 0 {
		distanceMiles = 0
	}
	return StationResult{
		Type: "Feature",
		Geometry: PointGeometry{
			Type:        "Point",
			Coordinates: [2]float64{s.Lng, s.Lat},
		},
		Properties: StationProperties{
			Name:          s.Name,
			DistanceMiles: distanceMiles,
		},
	}
}

// Coordinate returns the result's point as a Coordinate.
func (r StationResult) Coordinate() Coordinate {
	return Coordinate{Lat: r.Geometry.Coordinates[1], Lng: r.Geometry.Coordinates[0]}
}
