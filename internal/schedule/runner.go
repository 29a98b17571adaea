package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner executes a Task on a fixed interval, with an immediate first run
// on Start. Tick is exposed so tests can drive runs deterministically
// instead of waiting on wall-clock timers.
type Runner struct {
	task     Task
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func NewRunner(task Task, interval time.Duration) *Runner {
	return &Runner{
		task:     task,
		interval: interval,
	}
}

func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		r.Tick(ctx)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Tick(ctx)
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	close(r.stop)
	<-r.done
	r.started = false
}

// Tick runs the task once. Errors and panics are logged, never propagated,
// so one bad cycle cannot kill the schedule.
func (r *Runner) Tick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("task panicked", "task", r.task.Name(), "panic", rec)
		}
	}()
	if err := r.task.Run(ctx); err != nil {
		slog.Error("task run failed", "task", r.task.Name(), "error", err)
	}
}
