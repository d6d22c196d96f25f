// Package spectral folds wavelength-dependent attenuation into a traced
// path's accumulated signal: the terminal body's spectral signature (or a
// blackbody approximation for unmodeled bodies) shaped by configured
// atmospheric absorption bands and the lens redshift. The modulator is pure
// and deterministic, so per-pixel results are reproducible bit for bit.
package spectral

import "math"

// Band is one wavelength band of the output intensity vector.
type Band struct {
	Name   string  `yaml:"name"`
	Center float64 `yaml:"center"` // nm
	Width  float64 `yaml:"width"`  // nm
}

// Feature is one atmospheric absorption band: a Gaussian dip of the given
// depth centered on a wavelength.
type Feature struct {
	Gas    string  `yaml:"gas"`
	Center float64 `yaml:"center"` // nm
	Width  float64 `yaml:"width"`  // nm, Gaussian sigma
	Depth  float64 `yaml:"depth"`  // fraction absorbed at center, [0,1]
}

// Source is the spectral description of whatever a trace terminated on. The
// zero value is the background sky.
type Source struct {
	Signature   map[string]float64 // band name → reflectance, may be nil
	Temperature float64            // K, blackbody fallback; 0 means use the modulator default
}

// Modulator applies the configured band list and absorption features.
type Modulator struct {
	bands    []Band
	features []Feature
	redshift float64
	// backgroundTemp is the flat blackbody approximation used for the sky
	// and for bodies with no signature entry in a band.
	backgroundTemp float64
}

// NewModulator builds a modulator. Bands are evaluated in the given order;
// the output intensity vector uses the same order everywhere downstream.
func NewModulator(bands []Band, features []Feature, redshift, backgroundTemp float64) *Modulator {
	if backgroundTemp <= 0 {
		backgroundTemp = 5772 // solar effective temperature
	}
	return &Modulator{
		bands:          bands,
		features:       features,
		redshift:       redshift,
		backgroundTemp: backgroundTemp,
	}
}

// Bands returns the band count, which is the length of every intensity
// vector this modulator produces.
func (m *Modulator) Bands() int {
	return len(m.bands)
}

// Intensities returns the per-band intensity for a source, combining its
// signature (or blackbody fallback) with the absorption features, the lens
// redshift, and the convergence brightening of the lensed signal.
func (m *Modulator) Intensities(src Source, convergence float64) []float64 {
	out := make([]float64, len(m.bands))
	brighten := 1 + convergence
	if brighten < 0 {
		brighten = 0
	}

	for i, band := range m.bands {
		// The observed band samples the source at the blueward rest
		// wavelength; absorption happened in the source's frame.
		rest := band.Center / (1 + m.redshift)

		base, found := 0.0, false
		if refl, ok := src.Signature[band.Name]; ok {
			base, found = refl, true
		}
		if !found {
			// Unmodeled band or body: flat blackbody approximation
			temp := src.Temperature
			if temp <= 0 {
				temp = m.backgroundTemp
			}
			base = normalizedPlanck(rest, temp)
		}

		out[i] = base * m.transmission(rest) * brighten
	}
	return out
}

// transmission multiplies the Gaussian dips of every absorption feature at a
// rest wavelength.
func (m *Modulator) transmission(wavelength float64) float64 {
	trans := 1.0
	for _, f := range m.features {
		if f.Width <= 0 || f.Depth <= 0 {
			continue
		}
		d := (wavelength - f.Center) / f.Width
		trans *= 1 - f.Depth*math.Exp(-0.5*d*d)
	}
	if trans < 0 {
		return 0
	}
	return trans
}

// c2 is the second radiation constant hc/k in nm·K.
const c2 = 1.43877688e7

// normalizedPlanck evaluates the Planck spectral radiance at a wavelength
// and temperature, normalized to 1 at the Wien peak so band intensities stay
// order unity regardless of temperature.
func normalizedPlanck(wavelength, temp float64) float64 {
	if wavelength <= 0 || temp <= 0 {
		return 0
	}
	peak := 2.897771955e6 / temp // Wien displacement, nm
	return planck(wavelength, temp) / planck(peak, temp)
}

func planck(wavelength, temp float64) float64 {
	x := c2 / (wavelength * temp)
	return 1 / (math.Pow(wavelength, 5) * (math.Exp(x) - 1))
}
