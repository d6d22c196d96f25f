// Package catalog holds the observational inputs of a run: the lens
// parameters and the solar bodies that rays can encounter. Catalogs come
// from YAML files or from the built-in presets, and pass a data-quality
// gate before a render is allowed to start.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/df07/go-gravlens/pkg/core"
	"github.com/df07/go-gravlens/pkg/metric"
)

// Catalog describes one lens and the bodies in the field.
type Catalog struct {
	Name   string                `yaml:"name"`
	Lens   metric.LensParameters `yaml:"lens"`
	Bodies []core.SolarBody      `yaml:"bodies"`
}

// Report is the outcome of a data-quality check. A catalog with missing
// fields is never valid; a valid catalog still carries a score reflecting
// the completeness of its body data.
type Report struct {
	Valid         bool
	MissingFields []string
	Score         float64
}

// Load reads a catalog from a YAML file.
func Load(path string) (Catalog, error) {
	var cat Catalog
	data, err := os.ReadFile(path)
	if err != nil {
		return cat, fmt.Errorf("catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return cat, fmt.Errorf("catalog: parsing %s: %w", path, err)
	}
	return cat, nil
}

// Validate checks required fields and computes a quality score. Missing
// required fields make the catalog invalid and leave the score at zero.
func (c Catalog) Validate() Report {
	var r Report
	if c.Name == "" {
		r.MissingFields = append(r.MissingFields, "name")
	}
	if c.Lens.MassSolar == 0 {
		r.MissingFields = append(r.MissingFields, "lens.mass_solar")
	}
	if c.Lens.DistanceLy == 0 {
		r.MissingFields = append(r.MissingFields, "lens.distance_ly")
	}
	for i, b := range c.Bodies {
		if b.ID == "" {
			r.MissingFields = append(r.MissingFields, fmt.Sprintf("bodies[%d].id", i))
		}
		if b.AngularRadius <= 0 {
			r.MissingFields = append(r.MissingFields, fmt.Sprintf("bodies[%d].angular_radius", i))
		}
		if (b.Position == core.Vec3{}) {
			r.MissingFields = append(r.MissingFields, fmt.Sprintf("bodies[%d].position", i))
		}
	}
	if len(r.MissingFields) > 0 {
		return r
	}

	r.Valid = true
	r.Score = 1.0
	if err := c.Lens.Validate(); err != nil {
		// present but out of range: usable only after correction
		r.Score *= 0.5
	}
	for _, b := range c.Bodies {
		// bodies with neither a signature nor a temperature render as
		// flat background and degrade confidence in the field
		if len(b.Signature) == 0 && b.Temperature <= 0 {
			r.Score *= 0.9
		}
	}
	return r
}

// Check gates a catalog against a minimum quality score, wrapping
// core.ErrBadCatalog on failure so callers can test with errors.Is.
func (c Catalog) Check(floor float64) error {
	r := c.Validate()
	if !r.Valid {
		return fmt.Errorf("%w: missing fields: %s",
			core.ErrBadCatalog, strings.Join(r.MissingFields, ", "))
	}
	if r.Score < floor {
		return fmt.Errorf("%w: quality score %.2f below floor %.2f",
			core.ErrBadCatalog, r.Score, floor)
	}
	return nil
}
