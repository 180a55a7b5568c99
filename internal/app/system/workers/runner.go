// internal/app/system/workers/runner.go
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/camphub/internal/app/system/tasks"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Runner runs periodic jobs, one goroutine per job, until Stop.
type Runner struct {
	jobs   []tasks.Job
	log    *zap.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewRunner creates a runner for jobs. Jobs with a non-positive interval
// or nil Run are rejected at Start.
func NewRunner(logger *zap.Logger, jobs ...tasks.Job) *Runner {
	return &Runner{
		jobs:   jobs,
		log:    logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins every job loop. Calling Start twice is an error.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runner already started")
	}
	for _, j := range r.jobs {
		if j.Interval <= 0 || j.Run == nil {
			return fmt.Errorf("job %q: interval and run func are required", j.Name)
		}
	}
	r.started = true

	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(j)
		r.log.Info("background job started",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval))
	}
	return nil
}

// Stop signals every job to stop and waits for in-flight runs to finish.
// Safe to call more than once and before Start.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info("background jobs stopped")
}

func (r *Runner) loop(j tasks.Job) {
	defer r.wg.Done()

	if j.RunAtStart {
		r.runOnce(j)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runOnce(j)
		}
	}
}

func (r *Runner) runOnce(j tasks.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Batch())
	defer cancel()

	// Cancel the run early when Stop is called mid-job.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-done:
		}
	}()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("background job panicked", zap.String("job", j.Name), zap.Any("panic", p))
		}
	}()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		r.log.Error("background job failed",
			zap.String("job", j.Name),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
	}
}
