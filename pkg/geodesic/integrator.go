// Package geodesic traces single light paths backward from the observer
// plane through the lens metric. The equations of motion are advanced with
// an embedded Runge-Kutta-Fehlberg 4(5) method whose step size shrinks near
// the photon sphere and grows in the weak field, bounded by a per-trace step
// budget so slow convergence can never stall a worker.
package geodesic

import (
	"math"

	"github.com/df07/go-gravlens/pkg/core"
	"github.com/df07/go-gravlens/pkg/metric"
)

// Config contains integrator tolerances. Zero values are replaced by the
// defaults at construction.
type Config struct {
	RelTol        float64 `yaml:"rel_tol"`        // per-step relative error tolerance
	InitialStep   float64 `yaml:"initial_step"`   // affine parameter, gravitational radii
	MinStep       float64 `yaml:"min_step"`       // floor for adaptive shrinking
	MaxStep       float64 `yaml:"max_step"`       // cap for adaptive growth
	StepBudget    int     `yaml:"step_budget"`    // attempted steps per trace, counts rejects
	EscapeRadius  float64 `yaml:"escape_radius"`  // radius past which a ray has escaped
	HorizonMargin float64 `yaml:"horizon_margin"` // capture safety margin, fraction of horizon
}

// DefaultConfig returns the documented default tolerances.
func DefaultConfig() Config {
	return Config{
		RelTol:        1e-8,
		InitialStep:   1.0,
		MinStep:       1e-6,
		MaxStep:       500,
		StepBudget:    20000,
		EscapeRadius:  2e4,
		HorizonMargin: 0.01,
	}
}

// Tracker tests trace segments against the run's body set. Implemented by
// the interaction package; declared here so the integrator does not depend
// on it.
type Tracker interface {
	// Check returns interaction records for the segment in affine order and
	// whether one of them terminates the trace.
	Check(from, to core.Vec3, affineFrom, affineTo float64) (hits []core.InteractionRecord, terminal bool)
}

// Integrator advances null geodesics through a metric model. Each worker in
// the assembler pool owns one; instances are cheap and hold no mutable state
// between traces.
type Integrator struct {
	model   *metric.Model
	cfg     Config
	tracker Tracker // may be nil when no bodies are in play
}

// NewIntegrator creates an integrator for the given model and tolerances.
func NewIntegrator(model *metric.Model, cfg Config, tracker Tracker) *Integrator {
	def := DefaultConfig()
	if cfg.RelTol <= 0 {
		cfg.RelTol = def.RelTol
	}
	if cfg.InitialStep <= 0 {
		cfg.InitialStep = def.InitialStep
	}
	if cfg.MinStep <= 0 {
		cfg.MinStep = def.MinStep
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = def.MaxStep
	}
	if cfg.StepBudget <= 0 {
		cfg.StepBudget = def.StepBudget
	}
	if cfg.EscapeRadius <= 0 {
		cfg.EscapeRadius = def.EscapeRadius
	}
	if cfg.HorizonMargin <= 0 {
		cfg.HorizonMargin = def.HorizonMargin
	}
	return &Integrator{model: model, cfg: cfg, tracker: tracker}
}

// Config returns the effective tolerances after defaulting.
func (it *Integrator) Config() Config {
	return it.cfg
}

// Trace integrates one ray to a terminal classification. A non-converged
// attempt is retried once with a halved initial step and tightened
// tolerance; a second failure is reported as TraceNonConverged for the
// assembler to fill as a degraded pixel.
func (it *Integrator) Trace(ray core.Ray) core.TraceResult {
	// Fast path: a non-rotating lens captures every inbound ray aimed
	// inside the critical impact parameter. Only valid with no bodies to
	// check: an occluder could still intercept the ray before the horizon.
	if it.tracker == nil && it.model.Params().Spin == 0 && ray.Origin.Dot(ray.Direction) < 0 {
		b := ray.Origin.Cross(ray.Direction).Length()
		if b < it.model.CriticalImpactParameter() {
			return core.TraceResult{Status: core.TraceCaptured}
		}
	}

	result := it.run(ray, it.cfg.InitialStep, it.cfg.RelTol)
	if result.Status != core.TraceNonConverged {
		return result
	}

	retry := it.run(ray, it.cfg.InitialStep/2, it.cfg.RelTol/10)
	retry.Steps += result.Steps
	retry.Retried = true
	return retry
}

// run performs a single bounded integration attempt.
func (it *Integrator) run(ray core.Ray, initialStep, tol float64) core.TraceResult {
	dir := ray.Direction.Normalize()
	y := rayState{
		pos: ray.Origin,
		vel: [4]float64{it.model.NullTimeComponent(ray.Origin, dir), dir.X, dir.Y, dir.Z},
	}

	horizon := it.model.HorizonRadius() * (1 + it.cfg.HorizonMargin)
	result := core.TraceResult{Status: core.TraceNonConverged}
	affine := 0.0
	h := initialStep

	for steps := 0; steps < it.cfg.StepBudget; steps++ {
		r := y.pos.Length()
		h = it.clampStep(h, r, horizon)

		next, errEst := it.rkf45(y, h)
		result.Steps = steps + 1

		if errEst > tol && h > it.cfg.MinStep {
			// Reject and shrink; the attempt still counts against the budget.
			h = nextStep(h, errEst, tol)
			continue
		}

		prev := y.pos
		y = next
		segStart := affine
		affine += h
		h = nextStep(h, errEst, tol)

		if it.tracker != nil {
			hits, terminal := it.tracker.Check(prev, y.pos, segStart, affine)
			result.Interactions = append(result.Interactions, hits...)
			if terminal {
				result.Status = core.TraceInteracted
				result.Affine = hits[len(hits)-1].Affine
				return result
			}
		}

		r = y.pos.Length()
		if r >= it.cfg.EscapeRadius {
			result.Status = core.TraceEscaped
			result.ExitDirection = core.NewVec3(y.vel[1], y.vel[2], y.vel[3]).Normalize()
			result.Affine = affine
			return result
		}
		if r <= horizon {
			result.Status = core.TraceCaptured
			result.Affine = affine
			return result
		}
	}

	result.Affine = affine
	return result
}

// clampStep bounds the step to the local geometry: never longer than a
// fraction of the current radius, and tighter still approaching the horizon
// where the photon sphere demands resolution.
func (it *Integrator) clampStep(h, r, horizon float64) float64 {
	limit := math.Min(it.cfg.MaxStep, 0.25*r)
	if near := 0.1*(r-horizon) + it.cfg.MinStep; near < limit {
		limit = near
	}
	if h > limit {
		h = limit
	}
	if h < it.cfg.MinStep {
		h = it.cfg.MinStep
	}
	return h
}

// nextStep is the standard embedded-method controller with a safety factor
// and bounded growth.
func nextStep(h, errEst, tol float64) float64 {
	if errEst <= 0 {
		return h * 5
	}
	factor := 0.9 * math.Pow(tol/errEst, 0.2)
	if factor < 0.2 {
		factor = 0.2
	} else if factor > 5 {
		factor = 5
	}
	return h * factor
}
