package assembler

import (
	"context"
	"runtime"
	"sync"

	"github.com/df07/go-gravlens/pkg/core"
	"github.com/df07/go-gravlens/pkg/geodesic"
)

// traceSample is one traced grid cell: the raw trace outcome plus the
// source-plane angles when the ray escaped.
type traceSample struct {
	result  core.TraceResult
	beta    [2]float64
	escaped bool
}

// RowTask asks a worker to trace one grid row into the shared sample grid.
// Rows never overlap, so workers write without locking.
type RowTask struct {
	Row     int           // grid row, 0-based including the halo
	Samples []traceSample // the row's slice of the shared grid
}

// RowResult reports a finished row and hands its samples back.
type RowResult struct {
	Row     int
	Samples []traceSample
	Err     error
}

// WorkerPool traces grid rows in parallel. The integrator and projection
// are shared; both are safe for concurrent use.
type WorkerPool struct {
	taskQueue   chan RowTask
	resultQueue chan RowResult
	workers     []*worker
	numWorkers  int
	wg          sync.WaitGroup
}

type worker struct {
	id          int
	integrator  *geodesic.Integrator
	projection  *Projection
	haloOffset  int // translates grid rows to pixel rows
	taskQueue   chan RowTask
	resultQueue chan RowResult
}

// NewWorkerPool creates a pool; numWorkers <= 0 selects one per CPU.
func NewWorkerPool(integrator *geodesic.Integrator, projection *Projection, totalRows, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{
		taskQueue:   make(chan RowTask, totalRows),
		resultQueue: make(chan RowResult, totalRows),
		numWorkers:  numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &worker{
			id:          i,
			integrator:  integrator,
			projection:  projection,
			haloOffset:  1,
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		})
	}

	return wp
}

// Start begins all workers.
func (wp *WorkerPool) Start(ctx context.Context) {
	for _, w := range wp.workers {
		wp.wg.Add(1)
		go w.run(ctx, &wp.wg)
	}
}

// Stop shuts the pool down and waits for the workers to drain.
func (wp *WorkerPool) Stop() {
	close(wp.taskQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
}

// SubmitTask queues a row for tracing.
func (wp *WorkerPool) SubmitTask(task RowTask) {
	wp.taskQueue <- task
}

// GetResult retrieves one finished row.
func (wp *WorkerPool) GetResult() (RowResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// NumWorkers returns the pool size.
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

func (w *worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		if err := ctx.Err(); err != nil {
			w.resultQueue <- RowResult{Row: task.Row, Err: err}
			continue
		}

		py := task.Row - w.haloOffset
		for i := range task.Samples {
			px := i - w.haloOffset
			res := w.integrator.Trace(w.projection.RayFor(px, py))
			s := traceSample{result: res}
			if res.Status == core.TraceEscaped {
				s.escaped = true
				s.beta = w.projection.SkyAngles(res.ExitDirection)
			}
			task.Samples[i] = s
		}
		w.resultQueue <- RowResult{Row: task.Row, Samples: task.Samples}
	}
}
