// Package assembler runs the full pipeline: it traces one backward ray per
// pixel (plus a one-pixel halo for finite differences), resolves lensing
// quantities from neighboring traces, applies the spectral model, and packs
// the result into an immutable lensing field.
package assembler

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/df07/go-gravlens/pkg/catalog"
	"github.com/df07/go-gravlens/pkg/config"
	"github.com/df07/go-gravlens/pkg/core"
	"github.com/df07/go-gravlens/pkg/deflection"
	"github.com/df07/go-gravlens/pkg/geodesic"
	"github.com/df07/go-gravlens/pkg/interaction"
	"github.com/df07/go-gravlens/pkg/metric"
	"github.com/df07/go-gravlens/pkg/spectral"
)

// Stats summarizes one field assembly.
type Stats struct {
	Traced       int // rays traced, halo included
	Escaped      int
	Captured     int
	Occluded     int
	NonConverged int
	Degraded     int // pixels filled by interpolation
	Caustics     int
	Workers      int
	Elapsed      time.Duration
}

// Assembler owns one configured pipeline. It is reusable, and deterministic:
// the run ID is derived from the inputs, so identical configuration and
// catalog reproduce the identical field.
type Assembler struct {
	cfg        config.Config
	runID      uuid.UUID
	model      *metric.Model
	tracker    *interaction.Tracker
	integrator *geodesic.Integrator
	solver     *deflection.Solver
	modulator  *spectral.Modulator
	projection *Projection
	logger     *zap.Logger
}

// New wires a pipeline from a configuration and a catalog. The catalog must
// pass the configured quality floor.
func New(cfg config.Config, cat catalog.Catalog, logger *zap.Logger) (*Assembler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cat.Check(cfg.QualityFloor); err != nil {
		return nil, err
	}

	model, err := metric.NewModel(cat.Lens)
	if err != nil {
		return nil, err
	}

	gcfg := cfg.Geodesic
	if gcfg.EscapeRadius <= cfg.ObserverRadius {
		// rays start at the observer; the escape sphere must enclose it
		gcfg.EscapeRadius = 2 * cfg.ObserverRadius
	}

	tracker := interaction.NewTracker(cat.Bodies, logger)

	// Name the run after its inputs so reruns are bit-for-bit reproducible,
	// identity included.
	payload, err := yaml.Marshal(struct {
		Config  config.Config   `yaml:"config"`
		Catalog catalog.Catalog `yaml:"catalog"`
	}{cfg, cat})
	if err != nil {
		return nil, fmt.Errorf("assembler: fingerprinting inputs: %w", err)
	}

	return &Assembler{
		cfg:        cfg,
		runID:      uuid.NewSHA1(uuid.NameSpaceOID, payload),
		model:      model,
		tracker:    tracker,
		integrator: geodesic.NewIntegrator(model, gcfg, tracker),
		solver:     deflection.NewSolver(cfg.CausticEpsilon),
		modulator:  spectral.NewModulator(cfg.Bands, cfg.Features, cfg.Redshift, cfg.BackgroundTemp),
		projection: NewProjection(cfg.Width, cfg.Height, cfg.FOVDegrees, cfg.ObserverRadius),
		logger:     logger,
	}, nil
}

// Assemble traces the whole field and returns the finished artifact. On
// cancellation the partial work is discarded and ctx's error returned.
//
// Tracing streams: rows are submitted in order, and a pixel row is resolved
// as soon as the row below it has traced (one-row lookahead). Trace rows are
// released once resolved, so in-flight trace memory scales with the worker
// window, not the field size.
func (a *Assembler) Assemble(ctx context.Context) (*core.LensingField, Stats, error) {
	start := time.Now()
	runID := a.runID
	width, height := a.cfg.Width, a.cfg.Height
	gridH := height + 2

	pool := NewWorkerPool(a.integrator, a.projection, gridH, a.cfg.Workers)
	a.logger.Info("assembling lensing field",
		zap.String("run_id", runID.String()),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("workers", pool.NumWorkers()),
		zap.Int("bodies", a.tracker.Bodies()))

	records := make([]core.PixelLensingRecord, width*height)
	nonConverged := make([]bool, width*height)
	var st Stats

	pool.Start(ctx)
	err := a.pipeline(ctx, pool, records, nonConverged, &st)
	pool.Stop()
	if err != nil {
		return nil, Stats{}, err
	}

	degraded := a.fillDegraded(nonConverged, records)

	for i := range records {
		if records[i].Caustic {
			st.Caustics++
		}
	}
	st.Degraded = len(degraded)
	st.Workers = pool.NumWorkers()
	st.Elapsed = time.Since(start)

	a.logger.Info("lensing field assembled",
		zap.String("run_id", runID.String()),
		zap.Int("escaped", st.Escaped),
		zap.Int("captured", st.Captured),
		zap.Int("occluded", st.Occluded),
		zap.Int("degraded", st.Degraded),
		zap.Int("caustics", st.Caustics),
		zap.Duration("elapsed", st.Elapsed))

	return core.NewLensingField(runID, width, height, records, degraded), st, nil
}

// pipeline runs the collector and finalizer: the collector gathers traced
// rows from the pool and marks pixel rows ready once their halo rows are in
// hand; the finalizer resolves ready rows, frees their trace rows, and paces
// further submissions.
func (a *Assembler) pipeline(ctx context.Context, pool *WorkerPool, records []core.PixelLensingRecord, nonConverged []bool, st *Stats) error {
	gridW, gridH := a.cfg.Width+2, a.cfg.Height+2

	window := pool.NumWorkers()*2 + 2
	if window > gridH {
		window = gridH
	}

	rows := make([][]traceSample, gridH)
	submitted := 0
	submit := func() {
		if submitted < gridH {
			pool.SubmitTask(RowTask{Row: submitted, Samples: make([]traceSample, gridW)})
			submitted++
		}
	}
	for i := 0; i < window; i++ {
		submit()
	}

	g, gctx := errgroup.WithContext(ctx)
	ready := make(chan int, gridH)

	g.Go(func() error {
		defer close(ready)
		next := 0 // next pixel row whose halo may be complete
		for received := 0; received < gridH; received++ {
			result, ok := pool.GetResult()
			if !ok {
				return fmt.Errorf("assembler: worker pool closed unexpectedly")
			}
			if result.Err != nil {
				return result.Err
			}
			rows[result.Row] = result.Samples
			for _, s := range result.Samples {
				st.Traced++
				switch s.result.Status {
				case core.TraceEscaped:
					st.Escaped++
				case core.TraceCaptured:
					st.Captured++
				case core.TraceInteracted:
					st.Occluded++
				case core.TraceNonConverged:
					st.NonConverged++
				}
			}
			for next < a.cfg.Height && rows[next] != nil && rows[next+1] != nil && rows[next+2] != nil {
				ready <- next
				next++
			}
		}
		return nil
	})

	g.Go(func() error {
		for py := range ready {
			if err := gctx.Err(); err != nil {
				return err
			}
			for x := 0; x < a.cfg.Width; x++ {
				rec := a.resolvePixel(rows, x, py)
				nonConverged[py*a.cfg.Width+x] = rows[py+1][x+1].result.Status == core.TraceNonConverged
				records[py*a.cfg.Width+x] = rec
			}
			rows[py] = nil // no later pixel row reads it
			submit()
		}
		return nil
	})

	return g.Wait()
}

func (a *Assembler) resolvePixel(grid [][]traceSample, x, y int) core.PixelLensingRecord {
	s := grid[y+1][x+1]
	rec := core.PixelLensingRecord{Interactions: s.result.Interactions}

	switch s.result.Status {
	case core.TraceNonConverged:
		// left zeroed; fillDegraded replaces it
		return rec

	case core.TraceCaptured:
		// the horizon itself is black, but transparent emitters crossed
		// on the way down still reached the observer
		rec.Intensity = a.intensity(s.result, 0)
		return rec

	case core.TraceInteracted:
		rec.Intensity = a.intensity(s.result, 0)
		return rec
	}

	reference := a.projection.RayFor(x, y).Direction
	defl := a.solver.Angle(reference, s.result.ExitDirection)

	left, lok := neighborBeta(grid[y+1][x])
	right, rok := neighborBeta(grid[y+1][x+2])
	up, uok := neighborBeta(grid[y][x+1])
	down, dok := neighborBeta(grid[y+2][x+1])

	if (!lok && !rok) || (!uok && !dok) {
		// both neighbors on an axis lost to capture or occlusion: the
		// Jacobian is undefined and without that axis the determinant's
		// sign is unknowable, so report the clamp with positive sign
		rec.Deflection = defl
		rec.Caustic = true
		rec.Magnification = 1 / a.cfg.CausticEpsilon
		rec.Intensity = a.intensity(s.result, 0)
		return rec
	}

	// a lost neighbor degrades the central difference to a one-sided one
	if !lok {
		left = mirrorBeta(s.beta, right)
	}
	if !rok {
		right = mirrorBeta(s.beta, left)
	}
	if !uok {
		up = mirrorBeta(s.beta, down)
	}
	if !dok {
		down = mirrorBeta(s.beta, up)
	}

	q := a.solver.Resolve(defl, left, right, down, up, a.projection.Pitch())
	rec.Deflection = q.Deflection
	rec.Magnification = q.Magnification
	rec.Shear = q.Shear
	rec.Convergence = q.Convergence
	rec.Caustic = q.Caustic
	rec.Intensity = a.intensity(s.result, q.Convergence)
	return rec
}

// neighborBeta returns a neighbor's source-plane position if its trace
// escaped.
func neighborBeta(n traceSample) ([2]float64, bool) {
	return n.beta, n.escaped
}

// mirrorBeta mirrors a source-plane position through the center sample.
func mirrorBeta(center, other [2]float64) [2]float64 {
	return [2]float64{2*center[0] - other[0], 2*center[1] - other[1]}
}

// intensity composes the per-band intensity of a trace: the terminal source
// (occluding body for interacted traces, background sky for escaped ones,
// nothing for captured) plus every transparent emitter the ray crossed.
// Grazed bodies contribute nothing.
func (a *Assembler) intensity(res core.TraceResult, convergence float64) []float64 {
	out := make([]float64, a.modulator.Bands())

	switch res.Status {
	case core.TraceInteracted:
		if n := len(res.Interactions); n > 0 {
			if body, ok := a.tracker.Body(res.Interactions[n-1].BodyID); ok {
				accumulate(out, a.modulator.Intensities(
					spectral.Source{Signature: body.Signature, Temperature: body.Temperature},
					convergence))
			}
		}
	case core.TraceEscaped:
		accumulate(out, a.modulator.Intensities(spectral.Source{}, convergence))
	}

	for _, ir := range res.Interactions {
		if ir.Kind != core.InteractionEmission {
			continue
		}
		if body, ok := a.tracker.Body(ir.BodyID); ok {
			accumulate(out, a.modulator.Intensities(
				spectral.Source{Signature: body.Signature, Temperature: body.Temperature},
				convergence))
		}
	}
	return out
}

func accumulate(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// fillDegraded replaces non-converged pixels with the average of their
// healthy 4-neighbors, marking each as degraded. Pixels with no healthy
// neighbor stay zeroed but are still reported.
func (a *Assembler) fillDegraded(nonConverged []bool, records []core.PixelLensingRecord) []image.Point {
	width, height := a.cfg.Width, a.cfg.Height
	var points []image.Point

	healthy := func(x, y int) (core.PixelLensingRecord, bool) {
		if x < 0 || x >= width || y < 0 || y >= height {
			return core.PixelLensingRecord{}, false
		}
		if nonConverged[y*width+x] {
			return core.PixelLensingRecord{}, false
		}
		return records[y*width+x], true
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !nonConverged[y*width+x] {
				continue
			}

			rec := core.PixelLensingRecord{
				Degraded:  true,
				Intensity: make([]float64, a.modulator.Bands()),
			}
			n := 0
			for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nb, ok := healthy(x+d[0], y+d[1])
				if !ok {
					continue
				}
				n++
				rec.Deflection += nb.Deflection
				rec.Magnification += nb.Magnification
				rec.Convergence += nb.Convergence
				rec.Shear[0] += nb.Shear[0]
				rec.Shear[1] += nb.Shear[1]
				accumulate(rec.Intensity, nb.Intensity)
			}
			if n > 0 {
				inv := 1 / float64(n)
				rec.Deflection *= inv
				rec.Magnification *= inv
				rec.Convergence *= inv
				rec.Shear[0] *= inv
				rec.Shear[1] *= inv
				for i := range rec.Intensity {
					rec.Intensity[i] *= inv
				}
			}

			records[y*width+x] = rec
			points = append(points, image.Point{X: x, Y: y})
			a.logger.Debug("filling degraded pixel",
				zap.Int("neighbors", n),
				zap.Error(&core.TraceError{X: x, Y: y, Wrapped: core.ErrNonConverged}))
		}
	}

	if len(points) > 0 {
		a.logger.Warn("pixels degraded after non-convergence",
			zap.Int("count", len(points)))
	}
	return points
}
