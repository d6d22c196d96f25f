package core

// SpectralSignature maps a wavelength band name to reflectance or relative
// emission in that band. Bands without an entry fall back to a blackbody
// approximation at the body's temperature.
type SpectralSignature map[string]float64

// SolarBody is an occluding or emitting body in the lens frame. The set of
// bodies is immutable for the duration of one field assembly; the data-fetch
// collaborator may replace it between runs, never mutate it in place.
type SolarBody struct {
	ID            string            `yaml:"id"`
	Position      Vec3              `yaml:"position"`       // lens frame, gravitational radii
	AngularRadius float64           `yaml:"angular_radius"` // radians, as seen from the ray's neighborhood
	Opaque        bool              `yaml:"opaque"`         // opaque bodies terminate a trace
	Signature     SpectralSignature `yaml:"signature"`
	Temperature   float64           `yaml:"temperature"` // K, blackbody fallback for unlisted bands
}
