package core

import (
	"image"

	"github.com/google/uuid"
)

// TraceStatus is the terminal classification of a traced ray.
type TraceStatus int

const (
	TraceEscaped      TraceStatus = iota // left the strong-field region
	TraceCaptured                        // fell through the horizon
	TraceInteracted                      // terminated on an opaque body
	TraceNonConverged                    // step budget exhausted, even after retry
)

func (s TraceStatus) String() string {
	switch s {
	case TraceEscaped:
		return "escaped"
	case TraceCaptured:
		return "captured"
	case TraceInteracted:
		return "interacted"
	case TraceNonConverged:
		return "non-converged"
	default:
		return "unknown"
	}
}

// InteractionKind is a closed tagged variant over ray-body interactions.
// Consumers switch exhaustively over it; there is deliberately no body
// subclassing.
type InteractionKind int

const (
	// InteractionOccluded: the ray hit an opaque body. Terminates the trace.
	InteractionOccluded InteractionKind = iota
	// InteractionGrazed: the ray skimmed a transparent body. Trace continues.
	InteractionGrazed
	// InteractionEmission: the ray crossed a transparent emitter whose light
	// contributes to the pixel. Trace continues.
	InteractionEmission
)

func (k InteractionKind) String() string {
	switch k {
	case InteractionOccluded:
		return "occluded"
	case InteractionGrazed:
		return "grazed"
	case InteractionEmission:
		return "emission"
	default:
		return "unknown"
	}
}

// Terminal reports whether this interaction kind stops the trace.
func (k InteractionKind) Terminal() bool {
	return k == InteractionOccluded
}

// InteractionRecord describes one ray-body encounter. Records are ordered by
// impact affine parameter; tracing is backward, so smaller parameters are
// nearer the observer.
type InteractionRecord struct {
	BodyID     string
	Affine     float64 // impact affine parameter, the ordering key
	Separation float64 // angular separation at closest approach, radians
	Kind       InteractionKind
}

// TraceResult is the outcome of one geodesic trace.
type TraceResult struct {
	Status        TraceStatus
	ExitDirection Vec3    // unit direction at escape; zero unless Status == TraceEscaped
	Affine        float64 // affine parameter reached
	Steps         int     // integration steps used, including the retry
	Retried       bool
	Interactions  []InteractionRecord // affine-parameter order, nearest first
}

// PixelLensingRecord is the per-pixel output of the engine. Written exactly
// once by the assembler.
type PixelLensingRecord struct {
	Deflection    float64             // radians between reference and emergent directions
	Magnification float64             // signed 1/det(J); clamped, never infinite
	Shear         [2]float64          // trace-free symmetric part of J
	Convergence   float64             // isotropic part of J
	Interactions  []InteractionRecord // nearest-to-observer first
	Intensity     []float64           // per-band attenuated intensity, config band order
	Caustic       bool                // |det J| within epsilon of zero
	Degraded      bool                // filled by interpolation after trace non-convergence
}

// LensingField is the artifact handed to downstream renderers: a fixed-size
// grid of pixel records, immutable once assembled.
type LensingField struct {
	RunID         uuid.UUID
	Width, Height int

	records  []PixelLensingRecord
	degraded []image.Point
}

// NewLensingField wraps an assembled record grid. The records slice is
// row-major and must hold exactly Width*Height entries; ownership transfers
// to the field.
func NewLensingField(runID uuid.UUID, width, height int, records []PixelLensingRecord, degraded []image.Point) *LensingField {
	if len(records) != width*height {
		panic("core: lensing field record count does not match dimensions")
	}
	return &LensingField{
		RunID:    runID,
		Width:    width,
		Height:   height,
		records:  records,
		degraded: degraded,
	}
}

// At returns the record for pixel (x, y). Row-major, origin at the top-left
// of the observer plane.
func (f *LensingField) At(x, y int) PixelLensingRecord {
	return f.records[y*f.Width+x]
}

// DegradedPixels returns the locations of pixels that were filled by
// interpolation, so a caller can judge field quality before handing it
// downstream.
func (f *LensingField) DegradedPixels() []image.Point {
	out := make([]image.Point, len(f.degraded))
	copy(out, f.degraded)
	return out
}

// DegradedCount returns the number of interpolated pixels.
func (f *LensingField) DegradedCount() int {
	return len(f.degraded)
}
