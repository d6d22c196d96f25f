package deflection

import (
	"math"
	"testing"

	"github.com/df07/go-gravlens/pkg/core"
)

// synthetic linear lens map β = A·θ, sampled at the four neighbor offsets
func neighbors(a [2][2]float64, step float64) (left, right, down, up [2]float64) {
	apply := func(tx, ty float64) [2]float64 {
		return [2]float64{a[0][0]*tx + a[0][1]*ty, a[1][0]*tx + a[1][1]*ty}
	}
	return apply(-step, 0), apply(step, 0), apply(0, -step), apply(0, step)
}

func TestResolve_IdentityMapIsUnlensed(t *testing.T) {
	s := NewSolver(0)
	left, right, down, up := neighbors([2][2]float64{{1, 0}, {0, 1}}, 1e-4)

	q := s.Resolve(0, left, right, down, up, 1e-4)

	if math.Abs(q.Magnification-1) > 1e-12 {
		t.Errorf("Identity map: expected magnification 1, got %v", q.Magnification)
	}
	if math.Abs(q.Convergence) > 1e-12 || math.Abs(q.Shear[0]) > 1e-12 || math.Abs(q.Shear[1]) > 1e-12 {
		t.Errorf("Identity map: expected zero convergence and shear, got κ=%v γ=%v", q.Convergence, q.Shear)
	}
	if q.Caustic {
		t.Error("Identity map must not be flagged caustic")
	}
}

func TestResolve_LinearMapRecoversJacobian(t *testing.T) {
	s := NewSolver(0)
	a := [2][2]float64{{0.5, 0.1}, {0.2, 0.8}}
	left, right, down, up := neighbors(a, 1e-4)

	q := s.Resolve(0.01, left, right, down, up, 1e-4)

	det := a[0][0]*a[1][1] - a[0][1]*a[1][0] // 0.38
	if math.Abs(q.Magnification-1/det) > 1e-9 {
		t.Errorf("Expected magnification %v, got %v", 1/det, q.Magnification)
	}
	if math.Abs(q.Convergence-0.35) > 1e-9 {
		t.Errorf("Expected convergence 0.35, got %v", q.Convergence)
	}
	if math.Abs(q.Shear[0]-0.15) > 1e-9 || math.Abs(q.Shear[1]+0.15) > 1e-9 {
		t.Errorf("Expected shear (0.15, -0.15), got %v", q.Shear)
	}

	// Invariant: magnification equals 1/|det J| up to sign
	if math.Abs(math.Abs(q.Magnification)-1/math.Abs(det)) > 1e-9 {
		t.Error("Magnification must equal 1/|det J| for non-caustic pixels")
	}
}

func TestResolve_SignedMagnification(t *testing.T) {
	s := NewSolver(0)
	// Parity flip: negative determinant, magnification keeps the sign
	left, right, down, up := neighbors([2][2]float64{{-1, 0}, {0, 1}}, 1e-4)

	q := s.Resolve(0, left, right, down, up, 1e-4)
	if math.Abs(q.Magnification+1) > 1e-9 {
		t.Errorf("Expected signed magnification -1, got %v", q.Magnification)
	}
}

func TestResolve_CausticFlaggedNotInfinite(t *testing.T) {
	s := NewSolver(1e-6)
	left, right, down, up := neighbors([2][2]float64{{1e-9, 0}, {0, 1}}, 1e-4)

	q := s.Resolve(0, left, right, down, up, 1e-4)

	if !q.Caustic {
		t.Fatal("Near-singular Jacobian must be flagged caustic")
	}
	if math.IsInf(q.Magnification, 0) || math.IsNaN(q.Magnification) {
		t.Errorf("Caustic magnification must stay finite, got %v", q.Magnification)
	}
	if math.Abs(q.Magnification) > 1/1e-6+1 {
		t.Errorf("Caustic magnification must be clamped to the epsilon scale, got %v", q.Magnification)
	}
}

func TestAngle_MatchesVectorSeparation(t *testing.T) {
	s := NewSolver(0)
	ref := core.NewVec3(0, 0, -1)
	emergent := core.NewVec3(0.01, 0, -1).Normalize()

	got := s.Angle(ref, emergent)
	want := ref.AngleBetween(emergent)
	if got != want {
		t.Errorf("Expected angle %v, got %v", want, got)
	}
}
