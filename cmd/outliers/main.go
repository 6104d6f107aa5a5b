// Command outliers scans a station file and writes the northernmost,
// southernmost, easternmost and westernmost stations as the JSON record the
// server loads for a service area.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/randytsao24/nearstation/internal/location"
	"github.com/randytsao24/nearstation/internal/logger"
)

func main() {
	format := flag.String("format", "kml", "Station file format: kml, geojson or gtfs")
	path := flag.String("path", "", "Path to the station file")
	nameProperty := flag.String("name-property", location.DefaultGeoJSONNameProperty, "GeoJSON property holding the station name")
	parentOnly := flag.Bool("parent-stations", false, "GTFS: keep only parent stations (location_type=1)")
	out := flag.String("out", "", "Output file (default stdout)")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Usage: outliers --path <stations file> [--format kml|geojson|gtfs] [--out outliers.json]")
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Level: "info", Development: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Logger error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal("creating output file", zap.Error(err))
		}
		defer f.Close()
		w = f
	}

	loader, err := location.NewLoader(*format, *path, *nameProperty, *parentOnly)
	if err != nil {
		log.Fatal("invalid source", zap.Error(err))
	}
	set, err := generate(context.Background(), loader, w)
	if err != nil {
		log.Fatal("generating outliers", zap.Error(err))
	}

	for _, name := range location.OutlierOrder {
		s := set.Station(name)
		log.Info(string(name), zap.String("station", s.Name), zap.Float64("lat", s.Lat), zap.Float64("lng", s.Lng))
	}
}

// generate loads every station from loader and writes its outlier record to w.
func generate(ctx context.Context, loader location.Loader, w io.Writer) (location.OutlierSet, error) {
	stations, err := loader.Load(ctx)
	if err != nil {
		return location.OutlierSet{}, errors.Wrapf(err, "loading %s", loader.Name())
	}

	set, err := location.FindOutermost(stations)
	if err != nil {
		return location.OutlierSet{}, err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		return location.OutlierSet{}, errors.Wrap(err, "writing outliers")
	}
	return set, nil
}
