// Package interaction tests traced light paths against the run's set of
// occluding and emitting bodies. The body set is immutable for the duration
// of one field assembly, so the tracker is safe for concurrent use by every
// worker without locks; refreshed body positions require a new assembly, not
// an in-place mutation.
package interaction

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/df07/go-gravlens/pkg/core"
)

// tieEpsilon is the affine-parameter window within which two closest
// approaches count as simultaneous and the deterministic tie-break applies.
const tieEpsilon = 1e-9

// Tracker holds the ordered body set for a run.
type Tracker struct {
	bodies []core.SolarBody
	byID   map[string]int
	logger *zap.Logger
}

// NewTracker copies the body set so later catalog refreshes cannot reach a
// running assembly. A nil logger disables the ambiguity warnings.
func NewTracker(bodies []core.SolarBody, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	owned := make([]core.SolarBody, len(bodies))
	copy(owned, bodies)

	byID := make(map[string]int, len(owned))
	for i, b := range owned {
		byID[b.ID] = i
	}
	return &Tracker{bodies: owned, byID: byID, logger: logger}
}

// Body looks up a body by identifier, for spectral resolution of a trace's
// terminal interaction.
func (t *Tracker) Body(id string) (core.SolarBody, bool) {
	i, ok := t.byID[id]
	if !ok {
		return core.SolarBody{}, false
	}
	return t.bodies[i], true
}

// Bodies returns the tracked body count.
func (t *Tracker) Bodies() int {
	return len(t.bodies)
}

// Check tests one trace segment against every body. Hits are returned in
// impact affine-parameter order, which under backward tracing is
// nearest-to-observer first. The boolean reports whether the first occluding
// hit terminates the trace; grazing and emission hits are recorded for
// instrumentation and the trace continues past them.
func (t *Tracker) Check(from, to core.Vec3, affineFrom, affineTo float64) ([]core.InteractionRecord, bool) {
	var hits []core.InteractionRecord
	radii := make(map[string]float64, 1)

	seg := to.Subtract(from)
	segLen2 := seg.LengthSquared()

	for _, body := range t.bodies {
		rec, ok := t.closestApproach(body, from, seg, segLen2, affineFrom, affineTo)
		if !ok {
			continue
		}
		hits = append(hits, rec)
		radii[body.ID] = body.AngularRadius
	}
	if len(hits) == 0 {
		return nil, false
	}

	t.order(hits, radii)

	// Everything is recorded, but the trace ends at the first occluder:
	// later hits in this segment sit behind an opaque body and are dropped.
	for i, rec := range hits {
		if rec.Kind.Terminal() {
			return hits[:i+1], true
		}
	}
	return hits, false
}

// closestApproach finds where the segment passes nearest the body and tests
// the miss distance against the body's extent implied by its angular radius
// as seen from the ray's neighborhood. Each body registers at most once per
// trace: only the segment containing the closest approach produces a hit.
func (t *Tracker) closestApproach(body core.SolarBody, from, seg core.Vec3, segLen2, affineFrom, affineTo float64) (core.InteractionRecord, bool) {
	if segLen2 == 0 {
		return core.InteractionRecord{}, false
	}

	oc := body.Position.Subtract(from)
	distFrom := oc.Length()
	if distFrom == 0 {
		// Dead center: zero separation, unconditional hit
		return core.InteractionRecord{
			BodyID: body.ID,
			Affine: affineFrom,
			Kind:   t.kind(body),
		}, true
	}

	// Closest approach must fall inside this segment; earlier or later ones
	// belong to the neighboring segments.
	s := oc.Dot(seg) / segLen2
	if s <= 0 || s > 1 {
		return core.InteractionRecord{}, false
	}

	closest := from.Add(seg.Multiply(s))
	perp := body.Position.Subtract(closest).Length()

	// Physical extent at the ray's distance, from the angular radius
	if perp > math.Sin(body.AngularRadius)*distFrom {
		return core.InteractionRecord{}, false
	}

	return core.InteractionRecord{
		BodyID:     body.ID,
		Affine:     affineFrom + s*(affineTo-affineFrom),
		Separation: math.Asin(math.Min(1, perp/distFrom)),
		Kind:       t.kind(body),
	}, true
}

// kind maps a body to its interaction variant: occlusion for opaque bodies,
// emission for transparent bodies that carry a spectral signature, grazing
// otherwise.
func (t *Tracker) kind(body core.SolarBody) core.InteractionKind {
	switch {
	case body.Opaque:
		return core.InteractionOccluded
	case len(body.Signature) > 0:
		return core.InteractionEmission
	default:
		return core.InteractionGrazed
	}
}

// order sorts hits by impact affine parameter. Numerically identical impact
// parameters are broken deterministically: the body with the larger angular
// radius, implying greater physical extent, wins the earlier slot. Ties are
// logged as warnings, never treated as errors.
func (t *Tracker) order(hits []core.InteractionRecord, radii map[string]float64) {
	sort.SliceStable(hits, func(i, j int) bool {
		di := hits[i].Affine - hits[j].Affine
		if math.Abs(di) <= tieEpsilon {
			ri, rj := radii[hits[i].BodyID], radii[hits[j].BodyID]
			if ri != rj {
				return ri > rj
			}
			return hits[i].BodyID < hits[j].BodyID
		}
		return di < 0
	})

	for i := 1; i < len(hits); i++ {
		if math.Abs(hits[i].Affine-hits[i-1].Affine) <= tieEpsilon {
			t.logger.Warn("interaction ambiguity resolved by angular radius",
				zap.String("first", hits[i-1].BodyID),
				zap.String("second", hits[i].BodyID),
				zap.Float64("affine", hits[i-1].Affine))
		}
	}
}
