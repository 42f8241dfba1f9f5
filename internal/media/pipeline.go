package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/metrics"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/workers"
)

// ErrPipelineStopped is returned for submissions after Stop.
var ErrPipelineStopped = fmt.Errorf("encode pipeline stopped")

// DefaultJobTimeout bounds how long a caller waits for one encode or resize
// job before giving up. A stalled job can no longer hang its caller forever.
const DefaultJobTimeout = 2 * time.Minute

// result is what a worker delivers back through the correlation table.
type result struct {
	encode *EncodeOutput
	resize *ResizeOutput
	err    error
}

// job pairs a correlation id with the work to run.
type job struct {
	id     uint64
	format Format
	run    func() result
}

// Pipeline runs encode and resize work on a fixed pool of workers.
//
// Every submission gets a correlation id and a pending completion handle
// registered in a table; the worker delivers the result through the table
// and the caller waits on the handle, its context, or the job timeout,
// whichever fires first. A caller that gives up deregisters its handle, so
// late results are dropped instead of leaking.
type Pipeline struct {
	jobs       chan job
	quit       chan struct{}
	jobTimeout time.Duration

	mu      sync.Mutex
	pending map[uint64]chan result
	stopped bool

	nextID uint64

	// submitters counts callers that passed the stopped check and may still
	// send on jobs. Stop waits for them before shutting the workers down, so
	// the jobs channel is never closed and a send can never panic.
	submitters sync.WaitGroup
	wg         sync.WaitGroup
}

// NewPipeline starts workerCount workers (0 means one per CPU, capped at 8).
func NewPipeline(workerCount int) *Pipeline {
	if workerCount <= 0 {
		workerCount = workers.ForCPU(8)
	}

	p := &Pipeline{
		jobs:       make(chan job, workerCount*4),
		quit:       make(chan struct{}),
		jobTimeout: DefaultJobTimeout,
		pending:    make(map[uint64]chan result),
	}

	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	logging.Info("Encode pipeline started with %d workers", workerCount)
	return p
}

// SetJobTimeout overrides the per-job timeout. Zero disables it.
func (p *Pipeline) SetJobTimeout(d time.Duration) {
	p.jobTimeout = d
}

// Stop drains the pool. In-flight submissions complete; submissions after
// Stop fail with ErrPipelineStopped.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.submitters.Wait()
	close(p.quit)
	p.wg.Wait()

	// Any job still queued here was abandoned by its caller before the
	// workers exited. Fail it so deliver settles the queue-depth gauge.
	for {
		select {
		case j := <-p.jobs:
			metrics.EncodeQueueDepth.Dec()
			p.deliver(j.id, result{err: ErrPipelineStopped})
		default:
			logging.Info("Encode pipeline stopped")
			return
		}
	}
}

// SubmitEncode runs an encode job on the pool and waits for its result.
func (p *Pipeline) SubmitEncode(ctx context.Context, in EncodeInput) (*EncodeOutput, error) {
	format := in.Format
	res, err := p.submit(ctx, format, func() result {
		out, err := Encode(in)
		return result{encode: out, err: err}
	})
	if err != nil {
		return nil, err
	}
	return res.encode, res.err
}

// SubmitResize runs a resize job on the pool and waits for its result.
func (p *Pipeline) SubmitResize(ctx context.Context, in ResizeInput) (*ResizeOutput, error) {
	res, err := p.submit(ctx, FormatWebP, func() result {
		out, err := Resize(in)
		return result{resize: out, err: err}
	})
	if err != nil {
		return nil, err
	}
	return res.resize, res.err
}

func (p *Pipeline) submit(ctx context.Context, format Format, run func() result) (result, error) {
	handle := make(chan result, 1)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return result{}, ErrPipelineStopped
	}
	p.nextID++
	id := p.nextID
	p.pending[id] = handle
	p.submitters.Add(1)
	p.mu.Unlock()
	defer p.submitters.Done()

	j := job{id: id, format: format, run: run}

	metrics.EncodeQueueDepth.Inc()
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		metrics.EncodeQueueDepth.Dec()
		p.drop(id)
		return result{}, ctx.Err()
	}

	var timeout <-chan time.Time
	if p.jobTimeout > 0 {
		timer := time.NewTimer(p.jobTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-handle:
		return res, nil
	case <-ctx.Done():
		p.drop(id)
		return result{}, ctx.Err()
	case <-timeout:
		p.drop(id)
		return result{}, fmt.Errorf("job %d timed out after %s", id, p.jobTimeout)
	}
}

// drop deregisters a pending handle so a late result is discarded.
func (p *Pipeline) drop(id uint64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

// deliver routes a result to its registered handle, if the caller is still
// waiting.
func (p *Pipeline) deliver(id uint64, res result) {
	p.mu.Lock()
	handle, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()

	if ok {
		handle <- res
	} else {
		logging.Debug("Dropping result for abandoned job %d", id)
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for {
		select {
		case j := <-p.jobs:
			metrics.EncodeQueueDepth.Dec()
			start := time.Now()

			res := runSafely(j.run)

			status := "success"
			if res.err != nil {
				status = "error"
			}
			metrics.EncodeJobsTotal.WithLabelValues(string(j.format), status).Inc()
			metrics.EncodeJobDuration.WithLabelValues(string(j.format)).Observe(time.Since(start).Seconds())

			p.deliver(j.id, res)
		case <-p.quit:
			return
		}
	}
}

// runSafely converts worker panics into job errors so one bad image cannot
// take the pool down.
func runSafely(run func() result) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res = result{err: fmt.Errorf("encode worker panic: %v", r)}
		}
	}()
	return run()
}

// PendingCount reports how many submissions are awaiting results.
func (p *Pipeline) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
