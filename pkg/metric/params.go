package metric

import (
	"fmt"
	"math"

	"github.com/df07/go-gravlens/pkg/core"
)

// Meters per unit, used to convert catalog values into geometric units.
const (
	metersPerSolarMassRg = 1.476625e3 // GM_sun/c²
	metersPerLightYear   = 9.460730e15
)

// LensParameters describes the massive compact lens. Values come from the
// data-fetch collaborator's catalog and are immutable for a run; the engine
// passes them explicitly into every metric and integrator call rather than
// holding them in shared state.
type LensParameters struct {
	MassSolar      float64   `yaml:"mass_solar"`      // black hole mass, solar masses
	Spin           float64   `yaml:"spin"`            // dimensionless, 0 for non-rotating, |spin| < 1
	SpinAxis       core.Vec3 `yaml:"spin_axis"`       // lens frame; zero value means +Z
	InclinationDeg float64   `yaml:"inclination_deg"` // accretion structure orientation, informational
	DistanceLy     float64   `yaml:"distance_ly"`     // lens to observer, light years
}

// Validate rejects malformed lens configuration before any tracing begins.
func (p LensParameters) Validate() error {
	if p.MassSolar <= 0 {
		return fmt.Errorf("%w: lens mass must be positive, got %g", core.ErrInvalidParameters, p.MassSolar)
	}
	if math.Abs(p.Spin) >= 1 {
		return fmt.Errorf("%w: spin magnitude must be below 1 (extremal disallowed), got %g", core.ErrInvalidParameters, p.Spin)
	}
	if p.DistanceLy < 0 {
		return fmt.Errorf("%w: lens distance must not be negative, got %g", core.ErrInvalidParameters, p.DistanceLy)
	}
	return nil
}

// GravitationalRadius returns GM/c² in meters, the length unit of the
// engine's geometric coordinate system.
func (p LensParameters) GravitationalRadius() float64 {
	return p.MassSolar * metersPerSolarMassRg
}

// DistanceRg returns the observer distance expressed in gravitational radii.
func (p LensParameters) DistanceRg() float64 {
	if p.MassSolar <= 0 {
		return 0
	}
	return p.DistanceLy * metersPerLightYear / p.GravitationalRadius()
}
