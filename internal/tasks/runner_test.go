package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ziadkadry99/kbchat/internal/metrics"
)

func TestRunnerRunsTasks(t *testing.T) {
	r := NewRunner(zap.NewNop(), metrics.New())

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		r.Go("count", func(ctx context.Context) error {
			count.Add(1)
			return nil
		})
	}

	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := count.Load(); got != 5 {
		t.Errorf("ran %d tasks, want 5", got)
	}
}

func TestRunnerRecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRunner(zap.New(core), nil)

	r.Go("boom", func(ctx context.Context) error {
		panic("kaboom")
	})
	r.Go("fails", func(ctx context.Context) error {
		return errors.New("nope")
	})

	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if n := logs.FilterMessage("background task panicked").Len(); n != 1 {
		t.Errorf("expected 1 panic log, got %d", n)
	}
	if n := logs.FilterMessage("background task failed").Len(); n != 1 {
		t.Errorf("expected 1 failure log, got %d", n)
	}
}

func TestRunnerContextLiveUntilShutdown(t *testing.T) {
	r := NewRunner(zap.NewNop(), nil)

	var errDuringRun atomic.Value
	r.Go("detached", func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		if ctx.Err() != nil {
			errDuringRun.Store(ctx.Err())
		}
		return nil
	})

	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if v := errDuringRun.Load(); v != nil {
		t.Errorf("task context cancelled while running: %v", v)
	}
}

func TestRunnerShutdownTimeout(t *testing.T) {
	r := NewRunner(zap.NewNop(), nil)

	r.Go("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown error = %v, want deadline exceeded", err)
	}
}

func TestRunnerDropsAfterShutdown(t *testing.T) {
	r := NewRunner(zap.NewNop(), nil)
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	var ran atomic.Bool
	r.Go("late", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Error("task submitted after shutdown should not run")
	}
}
