package geodesic

import (
	"math"

	"github.com/df07/go-gravlens/pkg/core"
)

// rayState is the 8-component phase state of one null geodesic: spatial
// position, coordinate time, and the 4-velocity (index 0 = time).
type rayState struct {
	pos core.Vec3
	t   float64
	vel [4]float64
}

type stateVec [8]float64

func (s rayState) vector() stateVec {
	return stateVec{s.pos.X, s.pos.Y, s.pos.Z, s.t, s.vel[0], s.vel[1], s.vel[2], s.vel[3]}
}

func fromVector(v stateVec) rayState {
	return rayState{
		pos: core.NewVec3(v[0], v[1], v[2]),
		t:   v[3],
		vel: [4]float64{v[4], v[5], v[6], v[7]},
	}
}

// derivative evaluates the geodesic equations of motion at a state.
func (it *Integrator) derivative(v stateVec) stateVec {
	s := fromVector(v)
	accel := it.model.GeodesicAcceleration(s.pos, s.vel)
	return stateVec{
		s.vel[1], s.vel[2], s.vel[3], s.vel[0],
		accel[0], accel[1], accel[2], accel[3],
	}
}

// combine returns y + h·Σ cᵢ·kᵢ.
func combine(y stateVec, h float64, coeffs []float64, ks []stateVec) stateVec {
	out := y
	for i, c := range coeffs {
		if c == 0 {
			continue
		}
		for j := range out {
			out[j] += h * c * ks[i][j]
		}
	}
	return out
}

// rkf45 advances one Runge-Kutta-Fehlberg 4(5) step of size h and returns
// the fifth-order solution together with a scaled estimate of the local
// truncation error taken from the embedded fourth-order solution.
func (it *Integrator) rkf45(s rayState, h float64) (rayState, float64) {
	y := s.vector()

	k1 := it.derivative(y)
	k2 := it.derivative(combine(y, h, []float64{1.0 / 4}, []stateVec{k1}))
	k3 := it.derivative(combine(y, h, []float64{3.0 / 32, 9.0 / 32}, []stateVec{k1, k2}))
	k4 := it.derivative(combine(y, h,
		[]float64{1932.0 / 2197, -7200.0 / 2197, 7296.0 / 2197},
		[]stateVec{k1, k2, k3}))
	k5 := it.derivative(combine(y, h,
		[]float64{439.0 / 216, -8, 3680.0 / 513, -845.0 / 4104},
		[]stateVec{k1, k2, k3, k4}))
	k6 := it.derivative(combine(y, h,
		[]float64{-8.0 / 27, 2, -3544.0 / 2565, 1859.0 / 4104, -11.0 / 40},
		[]stateVec{k1, k2, k3, k4, k5}))

	ks := []stateVec{k1, k2, k3, k4, k5, k6}
	fifth := combine(y, h, []float64{16.0 / 135, 0, 6656.0 / 12825, 28561.0 / 56430, -9.0 / 50, 2.0 / 55}, ks)
	fourth := combine(y, h, []float64{25.0 / 216, 0, 1408.0 / 2565, 2197.0 / 4104, -1.0 / 5, 0}, ks)

	errEst := 0.0
	for i := range fifth {
		scale := 1 + math.Abs(fifth[i])
		if e := math.Abs(fifth[i]-fourth[i]) / scale; e > errEst {
			errEst = e
		}
	}
	return fromVector(fifth), errEst
}
