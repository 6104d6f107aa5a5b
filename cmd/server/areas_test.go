package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/randytsao24/nearstation/internal/config"
	"github.com/randytsao24/nearstation/internal/models"
)

func TestBuildAreas_SampleData(t *testing.T) {
	cfg, err := config.LoadServiceAreas(filepath.Join("..", "..", "data", "areas.yml"))
	require.NoError(t, err)

	areas, err := buildAreas(context.Background(), zap.NewNop(), cfg)
	require.NoError(t, err)
	require.Len(t, areas, 2)

	assert.Equal(t, "septa", areas[0].Name)
	assert.Equal(t, 8, areas[0].Catalog.Len())
	assert.Equal(t, "Doylestown", areas[0].Outliers.Northernmost.Name)

	assert.Equal(t, "dc_metro", areas[1].Name)
	assert.Equal(t, 6, areas[1].Catalog.Len())

	philly, ok := areas.Classify(models.Coordinate{Lat: 39.95, Lng: -75.16})
	require.True(t, ok)
	assert.Equal(t, "septa", philly.Name)

	dc, ok := areas.Classify(models.Coordinate{Lat: 38.90, Lng: -77.03})
	require.True(t, ok)
	assert.Equal(t, "dc_metro", dc.Name)
}

func TestBuildAreas_MissingOutliersIsFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.AreasConfig{ServiceAreas: []config.ServiceAreaConfig{{
		Name:     "nowhere",
		Outliers: filepath.Join(dir, "missing.json"),
		Sources:  []config.SourceConfig{{Format: "kml", Path: filepath.Join(dir, "s.kml")}},
	}}}

	_, err := buildAreas(context.Background(), zap.NewNop(), cfg)
	assert.Error(t, err)
}

func TestBuildAreas_BadSourceLeavesEmptyCatalog(t *testing.T) {
	dir := t.TempDir()
	outliers := filepath.Join(dir, "outliers.json")
	require.NoError(t, os.WriteFile(outliers, []byte(`{
		"northernmost": {"name": "n", "latitude": 41, "longitude": -75},
		"southernmost": {"name": "s", "latitude": 39, "longitude": -75},
		"easternmost": {"name": "e", "latitude": 40, "longitude": -74},
		"westernmost": {"name": "w", "latitude": 40, "longitude": -76}
	}`), 0o644))

	cfg := &config.AreasConfig{ServiceAreas: []config.ServiceAreaConfig{{
		Name:     "broken",
		Outliers: outliers,
		Sources:  []config.SourceConfig{{Format: "kml", Path: filepath.Join(dir, "missing.kml")}},
	}}}

	areas, err := buildAreas(context.Background(), zap.NewNop(), cfg)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Zero(t, areas[0].Catalog.Len())
}
