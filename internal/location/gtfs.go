package location

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/randytsao24/nearstation/internal/models"
)

// GTFSStopsLoader reads stations from a GTFS stops.txt file
type GTFSStopsLoader struct {
	Path string
	// ParentStationsOnly keeps rows with location_type 1 (stations) and drops
	// platforms and entrances.
	ParentStationsOnly bool
}

func (l *GTFSStopsLoader) Name() string { return "gtfs:" + l.Path }

// Load reads the CSV using its header row to locate columns.
func (l *GTFSStopsLoader) Load(ctx context.Context) ([]models.Station, error) {
	file, err := os.Open(l.Path)
	if err != nil {
		return nil, errors.Wrap(err, "opening stops file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV")
	}

	if len(records) < 2 {
		return nil, errors.New("stops file has no data rows")
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{"stop_name", "stop_lat", "stop_lon"} {
		if _, ok := cols[required]; !ok {
			return nil, errors.Errorf("stops file missing %s column", required)
		}
	}
	typeCol, hasType := cols["location_type"]

	var stations []models.Station
	for _, record := range records[1:] {
		if l.ParentStationsOnly {
			if !hasType || typeCol >= len(record) || strings.TrimSpace(record[typeCol]) != "1" {
				continue
			}
		}

		lat, err := strconv.ParseFloat(field(record, cols["stop_lat"]), 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(field(record, cols["stop_lon"]), 64)
		if err != nil {
			continue
		}

		s := models.Station{Name: field(record, cols["stop_name"]), Lat: lat, Lng: lng}
		if s.Coordinate().Validate() != nil {
			continue
		}
		stations = append(stations, s)
	}

	if len(stations) == 0 {
		return nil, errors.Errorf("no usable stops in %s", l.Path)
	}
	return stations, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
