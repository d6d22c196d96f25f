package core

// Ray is a single backward-traced light path. It starts on the observer
// plane and is advanced through the lens's spacetime by the geodesic
// integrator. A Ray is owned by exactly one trace and discarded when the
// trace terminates.
type Ray struct {
	Origin    Vec3    // observer-plane position, lens frame
	Direction Vec3    // initial unit direction, into the sky
	Affine    float64 // affine parameter reached so far
}

// NewRay creates a ray with a normalized direction and zero affine parameter
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// At returns the straight-line point at affine parameter t. Only meaningful
// for the undeflected reference path; traced paths come from the integrator.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}
