package inference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-kit/kit/metrics"
	"golang.org/x/sync/semaphore"
)

const DefaultMaxConcurrent = 4

// Runner executes each request as an isolated task that reports exactly one
// Response. A task never outlives its result and a fault inside it is
// contained to that task.
type Runner struct {
	svc      Service
	sem      *semaphore.Weighted
	logger   *slog.Logger
	duration metrics.Histogram
	errors   metrics.Counter
	wg       sync.WaitGroup
}

type RunnerOption func(*Runner)

// WithMetrics observes the duration of every task and counts failed tasks by
// kind, including tasks that never reached the service.
func WithMetrics(duration metrics.Histogram, errors metrics.Counter) RunnerOption {
	return func(r *Runner) {
		r.duration = duration
		r.errors = errors
	}
}

func NewRunner(svc Service, maxConcurrent int64, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	r := &Runner{
		svc:    svc,
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Spawn starts a task for req. The returned channel yields one Response and
// is then closed.
func (r *Runner) Spawn(ctx context.Context, req Request) <-chan Response {
	out := make(chan Response, 1)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(out)

		out <- r.execute(ctx, req)
	}()

	return out
}

// Run spawns a task and waits for its Response.
func (r *Runner) Run(ctx context.Context, req Request) Response {
	return <-r.Spawn(ctx, req)
}

// Wait blocks until every spawned task has reported.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) execute(ctx context.Context, req Request) (resp Response) {
	defer func(begin time.Time) {
		r.record(time.Since(begin), resp.Err)
	}(time.Now())
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Inference task panicked",
				slog.String("locator", req.ImageLocator),
				slog.Any("panic", rec),
			)
			resp = Response{Err: &Error{
				Kind:    KindInternal,
				Locator: req.ImageLocator,
				Err:     fmt.Errorf("%w: %v", errPanic, rec),
			}}
		}
	}()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Response{Err: &Error{Kind: KindCanceled, Locator: req.ImageLocator, Err: err}}
	}
	defer r.sem.Release(1)

	objects, err := r.svc.Infer(ctx, req)
	if err != nil {
		return Response{Err: err}
	}

	return Response{Objects: objects}
}

func (r *Runner) record(elapsed time.Duration, err error) {
	if r.duration != nil {
		r.duration.Observe(elapsed.Seconds())
	}
	if err != nil && r.errors != nil {
		r.errors.With("kind", KindOf(err).String()).Add(1)
	}
}
