package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestTraceError_Unwrap(t *testing.T) {
	err := &TraceError{X: 7, Y: 3, Wrapped: ErrNonConverged}

	if !errors.Is(err, ErrNonConverged) {
		t.Error("TraceError must unwrap to its wrapped sentinel")
	}
	if got := err.Error(); got != ErrNonConverged.Error() {
		t.Errorf("Expected message %q, got %q", ErrNonConverged.Error(), got)
	}

	var te *TraceError
	wrapped := fmt.Errorf("pixel trace: %w", err)
	if !errors.As(wrapped, &te) {
		t.Fatal("errors.As must recover the TraceError through wrapping")
	}
	if te.X != 7 || te.Y != 3 {
		t.Errorf("Expected location (7,3), got (%d,%d)", te.X, te.Y)
	}
}

func TestSentinels_Distinct(t *testing.T) {
	sentinels := []error{ErrInvalidParameters, ErrNonConverged, ErrBadCatalog}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("Sentinels %v and %v must not match", a, b)
			}
		}
	}
}
