// Package deflection derives per-pixel lens quantities from traced rays:
// deflection angle, signed magnification, shear, and convergence, all from a
// finite-difference lensing Jacobian over a pixel's four traced neighbors.
// Neighbor traces are reused from the assembler's grid, never recomputed, so
// total work stays at one trace per pixel plus border padding.
package deflection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/df07/go-gravlens/pkg/core"
)

// DefaultCausticEpsilon flags Jacobian determinants within this distance of
// zero as caustics instead of reporting unbounded magnification.
const DefaultCausticEpsilon = 1e-6

// Quantities are the solver outputs for one pixel.
type Quantities struct {
	Deflection    float64    // radians
	Magnification float64    // signed 1/det(J), clamped at caustics
	Shear         [2]float64 // trace-free symmetric part of J
	Convergence   float64    // isotropic part of J
	Caustic       bool
}

// Solver computes lens quantities. It is stateless apart from its epsilon
// and safe for concurrent use.
type Solver struct {
	causticEps float64
}

// NewSolver creates a solver; a non-positive epsilon selects the default.
func NewSolver(causticEps float64) *Solver {
	if causticEps <= 0 {
		causticEps = DefaultCausticEpsilon
	}
	return &Solver{causticEps: causticEps}
}

// Angle returns the deflection angle between the undeflected reference
// direction and the trace's emergent direction.
func (s *Solver) Angle(reference, emergent core.Vec3) float64 {
	return reference.AngleBetween(emergent)
}

// Resolve computes the pixel's lens quantities from the source-plane
// positions of its four neighbors, spaced step radians apart on the observer
// plane: left/right along the x axis, down/up along y. The Jacobian is the
// central-difference estimate of ∂β/∂θ.
func (s *Solver) Resolve(deflection float64, left, right, down, up [2]float64, step float64) Quantities {
	jxx := (right[0] - left[0]) / (2 * step)
	jyx := (right[1] - left[1]) / (2 * step)
	jxy := (up[0] - down[0]) / (2 * step)
	jyy := (up[1] - down[1]) / (2 * step)

	det := mat.Det(mat.NewDense(2, 2, []float64{jxx, jxy, jyx, jyy}))

	q := Quantities{
		Deflection:  deflection,
		Convergence: 1 - (jxx+jyy)/2,
		Shear:       [2]float64{(jyy - jxx) / 2, -(jxy + jyx) / 2},
	}

	if math.Abs(det) < s.causticEps {
		// Caustic: flag it and clamp instead of emitting ±Inf
		q.Caustic = true
		sign := 1.0
		if det < 0 {
			sign = -1
		}
		q.Magnification = sign / s.causticEps
		return q
	}

	q.Magnification = 1 / det
	return q
}
