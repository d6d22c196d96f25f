package core

import "errors"

// Engine error taxonomy. Configuration-level failures are fatal and abort a
// run before tracing begins; per-pixel failures are recovered locally and
// never abort an assembly.
var (
	// ErrInvalidParameters indicates malformed lens or body configuration.
	ErrInvalidParameters = errors.New("gravlens: invalid parameters")

	// ErrNonConverged indicates a trace failed to terminate within its step
	// budget. Recovered per-pixel via retry and degraded interpolation.
	ErrNonConverged = errors.New("gravlens: trace did not converge")

	// ErrBadCatalog indicates a body catalog that failed quality validation.
	ErrBadCatalog = errors.New("gravlens: catalog failed validation")
)

// TraceError wraps a per-pixel failure with its location.
type TraceError struct {
	X, Y    int
	Wrapped error
}

func (e *TraceError) Error() string {
	return e.Wrapped.Error()
}

func (e *TraceError) Unwrap() error {
	return e.Wrapped
}
