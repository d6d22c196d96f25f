package assembler

import (
	"math"

	"github.com/df07/go-gravlens/pkg/core"
)

// Projection maps observer-plane pixels to backward-traced rays and escaped
// ray directions back to source-plane sky angles. The observer sits on the
// +Z axis looking at the lens; pixel (0, 0) is the top-left of the plane.
type Projection struct {
	width, height int
	pitch         float64 // radians per pixel, square pixels

	origin   core.Vec3
	pointing core.Vec3 // toward the lens
	right    core.Vec3
	up       core.Vec3
}

// NewProjection builds the tangent-plane camera for a field. The horizontal
// field of view spans width pixels; height crops vertically at the same
// pixel pitch.
func NewProjection(width, height int, fovDegrees, observerRadius float64) *Projection {
	fov := fovDegrees * math.Pi / 180
	return &Projection{
		width:    width,
		height:   height,
		pitch:    fov / float64(width),
		origin:   core.Vec3{X: 0, Y: 0, Z: observerRadius},
		pointing: core.Vec3{X: 0, Y: 0, Z: -1},
		right:    core.Vec3{X: 1, Y: 0, Z: 0},
		up:       core.Vec3{X: 0, Y: 1, Z: 0},
	}
}

// Pitch returns the angular spacing between adjacent pixel centers.
func (p *Projection) Pitch() float64 {
	return p.pitch
}

// Angles returns the observer-plane angles of a pixel center. Indices one
// past the grid edge are valid; the assembler traces a one-pixel halo for
// its finite differences.
func (p *Projection) Angles(px, py int) (float64, float64) {
	tx := (float64(px) + 0.5 - float64(p.width)/2) * p.pitch
	ty := (float64(p.height)/2 - float64(py) - 0.5) * p.pitch
	return tx, ty
}

// RayFor returns the backward ray through a pixel center.
func (p *Projection) RayFor(px, py int) core.Ray {
	tx, ty := p.Angles(px, py)
	dir := p.pointing.
		Add(p.right.Multiply(math.Tan(tx))).
		Add(p.up.Multiply(math.Tan(ty)))
	return core.NewRay(p.origin, dir)
}

// SkyAngles maps an escaped ray's exit direction to source-plane angles in
// the same frame as Angles, so an unlensed ray maps a pixel to itself.
func (p *Projection) SkyAngles(dir core.Vec3) [2]float64 {
	forward := dir.Dot(p.pointing)
	return [2]float64{
		math.Atan2(dir.Dot(p.right), forward),
		math.Atan2(dir.Dot(p.up), forward),
	}
}
