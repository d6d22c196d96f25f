// Package metric models the lens's gravitational field. The metric is the
// Kerr-Schild Cartesian form g = η + f k⊗k, which is free of polar
// coordinate singularities: spin 0 reduces exactly to Schwarzschild, nonzero
// spin uses the Kerr solution about the configured spin axis. All lengths
// are in gravitational radii (GM/c² = 1), so the Schwarzschild radius is 2.
package metric

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/df07/go-gravlens/pkg/core"
)

// Model exposes the local metric coefficients and geodesic source terms the
// integrator needs to advance a null geodesic.
type Model struct {
	params LensParameters
	a      float64   // spin parameter in gravitational radii
	axis   core.Vec3 // unit spin axis
	e1, e2 core.Vec3 // orthonormal basis completing the spin frame
}

// NewModel validates the lens parameters and builds a metric model.
func NewModel(params LensParameters) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	axis := params.SpinAxis
	if axis.LengthSquared() == 0 {
		axis = core.NewVec3(0, 0, 1)
	}
	axis = axis.Normalize()

	// Any vector not parallel to the axis seeds the rest of the basis
	seed := core.NewVec3(1, 0, 0)
	if math.Abs(axis.X) > 0.9 {
		seed = core.NewVec3(0, 1, 0)
	}
	e1 := seed.Cross(axis).Normalize()
	e2 := axis.Cross(e1)

	return &Model{
		params: params,
		a:      params.Spin,
		axis:   axis,
		e1:     e1,
		e2:     e2,
	}, nil
}

// Params returns the immutable lens parameters this model was built from.
func (m *Model) Params() LensParameters {
	return m.params
}

// HorizonRadius returns the outer event horizon in gravitational radii:
// 1 + √(1-a²), which is 2 for the non-rotating case.
func (m *Model) HorizonRadius() float64 {
	return 1 + math.Sqrt(1-m.a*m.a)
}

// CriticalImpactParameter returns the Schwarzschild photon-capture impact
// parameter b_crit = 3√3·GM/c². Rays aimed inside it cannot escape a
// non-rotating lens; the integrator uses it as a fast-path classification
// and tests use it as a correctness check.
func (m *Model) CriticalImpactParameter() float64 {
	return 3 * math.Sqrt(3)
}

// WeakFieldDeflection returns the analytic weak-field deflection angle
// 4GM/(c²·b) for impact parameter b in gravitational radii.
func (m *Model) WeakFieldDeflection(b float64) float64 {
	return 4 / b
}

// EinsteinRadius returns θ_E = √(4GM·D_LS/(c²·D_L·D_S)) in radians for
// distances given in gravitational radii. A source at infinity is modeled
// by dLS/dS → 1.
func EinsteinRadius(dL, dS, dLS float64) float64 {
	return math.Sqrt(4 * dLS / (dL * dS))
}

// toSpinFrame expresses a lens-frame position in coordinates whose z axis is
// the spin axis.
func (m *Model) toSpinFrame(pos core.Vec3) core.Vec3 {
	return core.NewVec3(pos.Dot(m.e1), pos.Dot(m.e2), pos.Dot(m.axis))
}

// fromSpinFrame maps a spin-frame spatial vector back to the lens frame.
func (m *Model) fromSpinFrame(v core.Vec3) core.Vec3 {
	return m.e1.Multiply(v.X).Add(m.e2.Multiply(v.Y)).Add(m.axis.Multiply(v.Z))
}

// kerrSchildR solves the Kerr-Schild radial coordinate at a spin-frame
// position: r⁴ - (R²-a²)r² - a²z² = 0 with R the Euclidean radius.
func (m *Model) kerrSchildR(sp core.Vec3) float64 {
	R2 := sp.LengthSquared()
	if m.a == 0 {
		return math.Sqrt(R2)
	}
	b := R2 - m.a*m.a
	r2 := 0.5 * (b + math.Sqrt(b*b+4*m.a*m.a*sp.Z*sp.Z))
	return math.Sqrt(r2)
}

// kerrSchild returns the scalar f and the null covector k at a lens-frame
// position, with k's spatial part already rotated back to the lens frame.
func (m *Model) kerrSchild(pos core.Vec3) (f float64, k [4]float64) {
	sp := m.toSpinFrame(pos)
	r := m.kerrSchildR(sp)
	if r == 0 {
		return 0, [4]float64{1, 0, 0, 0}
	}

	a := m.a
	f = 2 * r * r * r / (r*r*r*r + a*a*sp.Z*sp.Z)
	denom := r*r + a*a
	spatial := m.fromSpinFrame(core.NewVec3(
		(r*sp.X+a*sp.Y)/denom,
		(r*sp.Y-a*sp.X)/denom,
		sp.Z/r,
	))
	return f, [4]float64{1, spatial.X, spatial.Y, spatial.Z}
}

// Coefficients returns the 4×4 covariant metric g_{μν} at a spatial
// position, index 0 being coordinate time. Signature (-,+,+,+).
func (m *Model) Coefficients(pos core.Vec3) [4][4]float64 {
	f, k := m.kerrSchild(pos)

	var g [4][4]float64
	g[0][0] = -1 + f*k[0]*k[0]
	for i := 1; i < 4; i++ {
		g[i][i] = 1 + f*k[i]*k[i]
		g[0][i] = f * k[0] * k[i]
		g[i][0] = g[0][i]
		for j := i + 1; j < 4; j++ {
			g[i][j] = f * k[i] * k[j]
			g[j][i] = g[i][j]
		}
	}
	return g
}

// NullTimeComponent solves the null condition g_{μν}v^μv^ν = 0 for the time
// velocity given a spatial velocity, taking the root that moves forward in
// coordinate time.
func (m *Model) NullTimeComponent(pos core.Vec3, spatial core.Vec3) float64 {
	g := m.Coefficients(pos)
	v := [3]float64{spatial.X, spatial.Y, spatial.Z}

	A := g[0][0]
	B := 0.0
	C := 0.0
	for i := 0; i < 3; i++ {
		B += 2 * g[0][i+1] * v[i]
		for j := 0; j < 3; j++ {
			C += g[i+1][j+1] * v[i] * v[j]
		}
	}

	disc := B*B - 4*A*C
	if disc < 0 || A == 0 {
		// Only reachable inside the horizon, where a trace is already over.
		return 0
	}
	return (-B - math.Sqrt(disc)) / (2 * A)
}

// GeodesicAcceleration returns d²x^μ/dλ² for a photon at the given position
// and 4-velocity (index 0 = time), contracting numerically differentiated
// Christoffel symbols against the velocity. Spin 0 takes the same path: the
// Kerr-Schild metric reduces to Schwarzschild there, so the contraction is
// the exact Schwarzschild geodesic equation rather than a truncated
// weak-field expansion.
func (m *Model) GeodesicAcceleration(pos core.Vec3, vel [4]float64) [4]float64 {
	return m.christoffelAcceleration(pos, vel)
}

// christoffelAcceleration computes a^μ = -Γ^μ_{αβ} v^α v^β from central
// differences of the metric. The metric is static, so time derivatives
// vanish and only the three spatial gradients are evaluated.
func (m *Model) christoffelAcceleration(pos core.Vec3, vel [4]float64) [4]float64 {
	r := pos.Length()
	if r <= m.HorizonRadius() {
		return [4]float64{}
	}

	h := 1e-6 * r
	if h < 1e-9 {
		h = 1e-9
	}

	// dg[σ][μ][ν] = ∂_σ g_{μν}, σ spatial only (1..3 in dg index 0..2)
	var dg [3][4][4]float64
	offsets := [3]core.Vec3{{X: h}, {Y: h}, {Z: h}}
	for s, off := range offsets {
		plus := m.Coefficients(pos.Add(off))
		minus := m.Coefficients(pos.Subtract(off))
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				dg[s][i][j] = (plus[i][j] - minus[i][j]) / (2 * h)
			}
		}
	}

	// Γ_{ν,αβ} v^α v^β, lower first index
	var lower [4]float64
	for n := 0; n < 4; n++ {
		sum := 0.0
		for a := 0; a < 4; a++ {
			for b := 0; b < 4; b++ {
				term := 0.0
				if a >= 1 {
					term += dg[a-1][n][b]
				}
				if b >= 1 {
					term += dg[b-1][n][a]
				}
				if n >= 1 {
					term -= dg[n-1][a][b]
				}
				sum += 0.5 * term * vel[a] * vel[b]
			}
		}
		lower[n] = sum
	}

	g := m.Coefficients(pos)
	flat := make([]float64, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			flat[i*4+j] = g[i][j]
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(4, 4, flat)); err != nil {
		// Degenerate metric only occurs at the ring singularity, which sits
		// inside the horizon and is unreachable for classified traces.
		return [4]float64{}
	}

	var accel [4]float64
	for mu := 0; mu < 4; mu++ {
		sum := 0.0
		for n := 0; n < 4; n++ {
			sum += inv.At(mu, n) * lower[n]
		}
		accel[mu] = -sum
	}
	return accel
}
