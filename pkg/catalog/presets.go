package catalog

import (
	"fmt"
	"sort"

	"github.com/df07/go-gravlens/pkg/core"
	"github.com/df07/go-gravlens/pkg/metric"
	"github.com/df07/go-gravlens/pkg/spectral"
)

// Epoch is a historical Earth snapshot: its atmosphere determines which
// absorption features appear in the lensed spectrum and how deep they are.
type Epoch struct {
	Name        string
	YearsAgo    float64
	Description string
	// Composition maps gas names to atmospheric fractions, 0..1.
	Composition map[string]float64
}

var epochs = []Epoch{
	{
		Name:        "early_earth",
		YearsAgo:    4.5e9,
		Description: "Early Earth, shortly after formation, with intense volcanic activity",
		Composition: map[string]float64{"CO2": 0.98, "N2": 0.01, "H2O": 0.01},
	},
	{
		Name:        "archaean",
		YearsAgo:    3.5e9,
		Description: "Archaean Earth with first signs of life and a reducing atmosphere",
		Composition: map[string]float64{"CO2": 0.70, "N2": 0.20, "CH4": 0.05, "H2O": 0.05},
	},
	{
		Name:        "proterozoic",
		YearsAgo:    2.0e9,
		Description: "Proterozoic Earth with first oxygen-producing organisms",
		Composition: map[string]float64{"CO2": 0.30, "N2": 0.60, "O2": 0.05, "H2O": 0.05},
	},
	{
		Name:        "cambrian",
		YearsAgo:    5.0e8,
		Description: "Cambrian Earth with the explosion of complex life",
		Composition: map[string]float64{"CO2": 0.15, "N2": 0.70, "O2": 0.10, "H2O": 0.05},
	},
	{
		Name:        "triassic",
		YearsAgo:    2.0e8,
		Description: "Triassic Earth with first dinosaurs and gymnosperms",
		Composition: map[string]float64{"CO2": 0.20, "N2": 0.65, "O2": 0.10, "H2O": 0.05},
	},
	{
		Name:        "cretaceous",
		YearsAgo:    6.5e7,
		Description: "Late Cretaceous Earth with diverse dinosaurs and flowering plants",
		Composition: map[string]float64{"CO2": 0.15, "N2": 0.70, "O2": 0.10, "H2O": 0.05},
	},
}

// Epochs returns the built-in historical Earth epochs, oldest first.
func Epochs() []Epoch {
	out := make([]Epoch, len(epochs))
	copy(out, epochs)
	return out
}

// EpochByName looks up a built-in epoch.
func EpochByName(name string) (Epoch, error) {
	for _, e := range epochs {
		if e.Name == name {
			return e, nil
		}
	}
	return Epoch{}, fmt.Errorf("%w: unknown epoch %q", core.ErrBadCatalog, name)
}

// AtmosphereFeatures scales a base feature set by an epoch's atmospheric
// composition. The base depths describe a pure atmosphere of that gas;
// gases absent from the epoch drop out entirely. The result is sorted by
// wavelength so feature lists compare stably across runs.
func AtmosphereFeatures(base []spectral.Feature, e Epoch) []spectral.Feature {
	var out []spectral.Feature
	for _, f := range base {
		frac, ok := e.Composition[f.Gas]
		if !ok || frac <= 0 {
			continue
		}
		f.Depth *= frac
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Center < out[j].Center })
	return out
}

// M87 is the default lens: the supermassive black hole in Messier 87.
func M87() Catalog {
	return Catalog{
		Name: "m87",
		Lens: metric.LensParameters{
			MassSolar:      6.5e9,
			Spin:           0.9,
			SpinAxis:       core.Vec3{X: 0, Y: 0, Z: 1},
			InclinationDeg: 17,
			DistanceLy:     53.5e6,
		},
		Bodies: SolarBodies(),
	}
}

// SolarBodies returns the Sun and Earth as seen through the lensed field.
// Positions are in the lens frame in gravitational radii, placed behind
// the lens on the optical axis so their images thread the strong field.
func SolarBodies() []core.SolarBody {
	return []core.SolarBody{
		{
			ID:            "sun",
			Position:      core.Vec3{X: 0, Y: 40, Z: -2.0e4},
			AngularRadius: 4.6e-3,
			Opaque:        true,
			Temperature:   5772,
		},
		{
			ID:            "earth",
			Position:      core.Vec3{X: 25, Y: -15, Z: -2.0e4},
			AngularRadius: 4.3e-5,
			Opaque:        false,
			Temperature:   288,
			Signature: core.SpectralSignature{
				"uv":    0.05,
				"blue":  0.35, // ocean and Rayleigh scattering
				"green": 0.30,
				"red":   0.25,
				"nir":   0.45, // vegetation red edge
				"swir":  0.20,
			},
		},
	}
}
