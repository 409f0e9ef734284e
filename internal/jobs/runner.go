// Package jobs runs the recurring pipeline work: order polling, automatic
// acknowledgment, invoice submission, and ERP order creation.
package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// JobFunc is one unit of periodic work.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	fn       JobFunc
	running  atomic.Bool
}

// Runner schedules jobs on independent tickers. Each job is single-flight:
// a tick that fires while the previous run is still going is skipped, so a
// slow partner API never stacks concurrent runs of the same job.
type Runner struct {
	logger *zap.Logger
	jobs   []*job
	wg     sync.WaitGroup
}

func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Register adds a named job. Must be called before Start.
func (r *Runner) Register(name string, interval time.Duration, fn JobFunc) {
	r.jobs = append(r.jobs, &job{name: name, interval: interval, fn: fn})
}

// Start launches one goroutine per job and returns. Jobs stop when ctx is
// cancelled; Wait blocks until all of them have returned.
func (r *Runner) Start(ctx context.Context) {
	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, j)
	}
}

func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, j *job) {
	defer r.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// First run happens immediately so a restart doesn't wait out a full
	// interval before catching up.
	r.runOnce(ctx, j)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx, j)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, j *job) {
	if !j.running.CompareAndSwap(false, true) {
		r.logger.Warn("job still running, skipping tick", zap.String("job", j.name))
		return
	}
	defer j.running.Store(false)

	start := time.Now()
	if err := j.fn(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("job failed",
			zap.String("job", j.name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	r.logger.Debug("job completed",
		zap.String("job", j.name),
		zap.Duration("elapsed", time.Since(start)))
}
