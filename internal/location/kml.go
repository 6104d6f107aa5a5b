package location

import (
	"context"
	"encoding/xml"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/randytsao24/nearstation/internal/models"
)

// KMLLoader reads placemarks from a KML document's folders
type KMLLoader struct {
	Path string
}

type kmlDocument struct {
	Placemarks []kmlPlacemark `xml:"Document>Folder>Placemark"`
}

type kmlPlacemark struct {
	Name  string `xml:"name"`
	Point *struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"Point"`
}

func (l *KMLLoader) Name() string { return "kml:" + l.Path }

// Load parses the file. Placemarks without a usable point are skipped.
func (l *KMLLoader) Load(ctx context.Context) ([]models.Station, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, errors.Wrap(err, "reading KML file")
	}

	var doc kmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing KML")
	}

	stations := make([]models.Station, 0, len(doc.Placemarks))
	for _, pm := range doc.Placemarks {
		if pm.Point == nil {
			continue
		}
		lat, lng, ok := parseKMLCoordinates(pm.Point.Coordinates)
		if !ok {
			continue
		}
		stations = append(stations, models.Station{
			Name: strings.TrimSpace(pm.Name),
			Lat:  lat,
			Lng:  lng,
		})
	}

	if len(stations) == 0 {
		return nil, errors.Errorf("no placemarks with coordinates in %s", l.Path)
	}
	return stations, nil
}

// parseKMLCoordinates handles "lng,lat[,alt]".
func parseKMLCoordinates(s string) (lat, lng float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 {
		return 0, 0, false
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}

	if (models.Coordinate{Lat: lat, Lng: lng}).Validate() != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
