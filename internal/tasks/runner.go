// Package tasks runs detached background work off the request path.
package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/kbchat/internal/metrics"
)

// Runner supervises detached tasks. Tasks run on the runner's own context,
// never on the request that spawned them, so they outlive the HTTP response.
// Errors and panics are logged and counted; they never propagate.
type Runner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner creates a Runner. m may be nil.
func NewRunner(log *zap.Logger, m *metrics.Metrics) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
		metrics: m,
	}
}

// Go starts fn in its own goroutine and returns immediately. Tasks submitted
// after Shutdown has begun are dropped with a warning.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn("dropping background task after shutdown", zap.String("task", name))
		r.metrics.ObserveTask(name, "dropped")
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		r.run(name, fn)
	}()
}

func (r *Runner) run(name string, fn func(ctx context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("background task panicked",
				zap.String("task", name),
				zap.String("panic", fmt.Sprint(rec)),
				zap.ByteString("stack", debug.Stack()),
			)
			r.metrics.ObserveTask(name, "panic")
		}
	}()

	if err := fn(r.ctx); err != nil {
		r.log.Warn("background task failed", zap.String("task", name), zap.Error(err))
		r.metrics.ObserveTask(name, "error")
		return
	}
	r.metrics.ObserveTask(name, "ok")
}

// Shutdown stops accepting tasks and waits for in-flight ones. If ctx expires
// first, the tasks' context is cancelled and ctx.Err() is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}
