package interaction

import (
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/df07/go-gravlens/pkg/core"
)

func TestCheck_OrdersNearestToObserverFirst(t *testing.T) {
	// Tracing is backward, so the smaller affine parameter is nearer the
	// observer and must come first.
	bodies := []core.SolarBody{
		{ID: "far", Position: core.NewVec3(0, 0, 70), AngularRadius: 0.05, Opaque: true},
		{ID: "near", Position: core.NewVec3(0, 0, 30), AngularRadius: 0.05, Signature: core.SpectralSignature{"red": 0.5}},
	}
	tracker := NewTracker(bodies, nil)

	hits, terminal := tracker.Check(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 100), 0, 100)

	if len(hits) != 2 {
		t.Fatalf("Expected both bodies recorded, got %d hits", len(hits))
	}
	if hits[0].BodyID != "near" || hits[1].BodyID != "far" {
		t.Errorf("Expected near-to-observer ordering [near far], got [%s %s]", hits[0].BodyID, hits[1].BodyID)
	}
	if !terminal {
		t.Error("Expected the opaque body to terminate the trace")
	}
	if hits[0].Kind != core.InteractionEmission || hits[1].Kind != core.InteractionOccluded {
		t.Errorf("Expected emission then occlusion, got %v then %v", hits[0].Kind, hits[1].Kind)
	}
	if math.Abs(hits[0].Affine-30) > 1e-9 || math.Abs(hits[1].Affine-70) > 1e-9 {
		t.Errorf("Expected impact affine parameters 30 and 70, got %v and %v", hits[0].Affine, hits[1].Affine)
	}
}

func TestCheck_FirstOccluderDropsShadowedHits(t *testing.T) {
	bodies := []core.SolarBody{
		{ID: "wall", Position: core.NewVec3(0, 0, 40), AngularRadius: 0.05, Opaque: true},
		{ID: "behind", Position: core.NewVec3(0, 0, 80), AngularRadius: 0.05, Opaque: true},
	}
	tracker := NewTracker(bodies, nil)

	hits, terminal := tracker.Check(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 100), 0, 100)

	if !terminal {
		t.Fatal("Expected termination at the first occluder")
	}
	if len(hits) != 1 || hits[0].BodyID != "wall" {
		t.Errorf("Hits behind the first occluder must be dropped, got %v", hits)
	}
}

func TestCheck_GrazingContinuesTrace(t *testing.T) {
	bodies := []core.SolarBody{
		{ID: "wisp", Position: core.NewVec3(0, 0, 50), AngularRadius: 0.1},
	}
	tracker := NewTracker(bodies, nil)

	hits, terminal := tracker.Check(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 100), 0, 100)

	if terminal {
		t.Error("Transparent body must not terminate the trace")
	}
	if len(hits) != 1 || hits[0].Kind != core.InteractionGrazed {
		t.Errorf("Expected one grazing record, got %v", hits)
	}
}

func TestCheck_MissBeyondAngularRadius(t *testing.T) {
	// Body 10 units off a ray passing at distance 50: ~0.197 rad away,
	// angular radius well below that.
	bodies := []core.SolarBody{
		{ID: "aside", Position: core.NewVec3(10, 0, 50), AngularRadius: 0.05, Opaque: true},
	}
	tracker := NewTracker(bodies, nil)

	hits, terminal := tracker.Check(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 100), 0, 100)
	if len(hits) != 0 || terminal {
		t.Errorf("Expected clean miss, got hits=%v terminal=%v", hits, terminal)
	}
}

func TestCheck_HitRegistersOncePerTrace(t *testing.T) {
	bodies := []core.SolarBody{
		{ID: "earth", Position: core.NewVec3(0, 0, 50), AngularRadius: 0.05, Opaque: true},
	}
	tracker := NewTracker(bodies, nil)

	// Closest approach lies in the second segment, not the first
	hits1, _ := tracker.Check(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 40), 0, 40)
	hits2, terminal := tracker.Check(core.NewVec3(0, 0, 40), core.NewVec3(0, 0, 100), 40, 100)

	if len(hits1) != 0 {
		t.Errorf("Segment before closest approach must not register a hit, got %v", hits1)
	}
	if len(hits2) != 1 || !terminal {
		t.Errorf("Segment containing closest approach must register exactly once, got %v", hits2)
	}
	if math.Abs(hits2[0].Affine-50) > 1e-9 {
		t.Errorf("Expected impact affine 50, got %v", hits2[0].Affine)
	}
}

func TestCheck_TieBreakPrefersLargerAngularRadius(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	logger := zap.New(obs)

	// Identical closest-approach affine parameters: the larger body wins
	bodies := []core.SolarBody{
		{ID: "small", Position: core.NewVec3(0, 0, 50), AngularRadius: 0.02},
		{ID: "large", Position: core.NewVec3(0, 0, 50), AngularRadius: 0.08},
	}
	tracker := NewTracker(bodies, logger)

	hits, _ := tracker.Check(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 100), 0, 100)

	if len(hits) != 2 {
		t.Fatalf("Expected both tied bodies recorded, got %d", len(hits))
	}
	if hits[0].BodyID != "large" {
		t.Errorf("Expected the larger angular radius to win the tie, got %q first", hits[0].BodyID)
	}
	if logs.Len() == 0 {
		t.Error("Interaction ambiguity must be logged as a warning")
	}
}

func TestTracker_CopiesBodySet(t *testing.T) {
	bodies := []core.SolarBody{
		{ID: "earth", Position: core.NewVec3(0, 0, 50), AngularRadius: 0.05, Opaque: true},
	}
	tracker := NewTracker(bodies, nil)

	// Mutating the caller's slice must not reach the running tracker
	bodies[0].Position = core.NewVec3(999, 999, 999)

	got, ok := tracker.Body("earth")
	if !ok {
		t.Fatal("Expected body lookup to succeed")
	}
	if got.Position != core.NewVec3(0, 0, 50) {
		t.Error("Tracker must own an immutable copy of the body set")
	}
}
