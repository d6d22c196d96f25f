package core

import (
	"image"
	"testing"

	"github.com/google/uuid"
)

func TestInteractionKind_Terminal(t *testing.T) {
	// Only occlusion stops a trace; grazing and emission keep it alive.
	if !InteractionOccluded.Terminal() {
		t.Error("Occluded interactions must terminate the trace")
	}
	if InteractionGrazed.Terminal() || InteractionEmission.Terminal() {
		t.Error("Grazed and emission interactions must not terminate the trace")
	}
}

func TestTraceStatus_String(t *testing.T) {
	cases := map[TraceStatus]string{
		TraceEscaped:      "escaped",
		TraceCaptured:     "captured",
		TraceInteracted:   "interacted",
		TraceNonConverged: "non-converged",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status %d: expected %q, got %q", status, want, got)
		}
	}
}

func TestLensingField_Addressing(t *testing.T) {
	width, height := 4, 3
	records := make([]PixelLensingRecord, width*height)
	records[2*width+3] = PixelLensingRecord{Magnification: 2.5}
	degraded := []image.Point{{X: 1, Y: 0}}

	field := NewLensingField(uuid.Nil, width, height, records, degraded)

	if got := field.At(3, 2).Magnification; got != 2.5 {
		t.Errorf("Expected magnification 2.5 at (3,2), got %v", got)
	}
	if field.DegradedCount() != 1 {
		t.Errorf("Expected 1 degraded pixel, got %d", field.DegradedCount())
	}

	// Returned degraded locations are a copy, not the field's own slice
	pts := field.DegradedPixels()
	pts[0] = image.Point{X: 9, Y: 9}
	if field.DegradedPixels()[0] != (image.Point{X: 1, Y: 0}) {
		t.Error("DegradedPixels must return a defensive copy")
	}
}

func TestLensingField_DimensionMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for mismatched record count")
		}
	}()
	NewLensingField(uuid.Nil, 2, 2, make([]PixelLensingRecord, 3), nil)
}
