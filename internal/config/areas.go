package config

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SourceConfig describes one station file
type SourceConfig struct {
	Format             string `yaml:"format" validate:"required,oneof=kml geojson gtfs"`
	Path               string `yaml:"path" validate:"required"`
	NameProperty       string `yaml:"name_property"`
	ParentStationsOnly bool   `yaml:"parent_stations_only"`
}

// ServiceAreaConfig describes one transit system
type ServiceAreaConfig struct {
	Name     string         `yaml:"name" validate:"required"`
	Outliers string         `yaml:"outliers" validate:"required"`
	Sources  []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`
}

// AreasConfig is the service-areas file
type AreasConfig struct {
	ServiceAreas []ServiceAreaConfig `yaml:"service_areas" validate:"required,min=1,dive"`
}

// LoadServiceAreas reads and validates the service-areas file. Relative paths
// inside it are resolved against the file's directory.
func LoadServiceAreas(path string) (*AreasConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading service areas file")
	}

	var cfg AreasConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrapf(err, "validating %s", path)
	}

	dir := filepath.Dir(path)
	seen := make(map[string]bool, len(cfg.ServiceAreas))
	for i := range cfg.ServiceAreas {
		area := &cfg.ServiceAreas[i]
		if seen[area.Name] {
			return nil, errors.Errorf("duplicate service area %q", area.Name)
		}
		seen[area.Name] = true

		area.Outliers = resolvePath(dir, area.Outliers)
		for j := range area.Sources {
			area.Sources[j].Path = resolvePath(dir, area.Sources[j].Path)
		}
	}
	return &cfg, nil
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
