package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunner_RunsImmediately(t *testing.T) {
	ran := make(chan struct{}, 1)

	r := NewRunner(zap.NewNop())
	// Interval far beyond the test lifetime, so only the startup run fires.
	r.Register("startup", time.Hour, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run at startup")
	}

	cancel()
	r.Wait()
}

func TestRunner_SingleFlight(t *testing.T) {
	entered := make(chan struct{}, 16)
	release := make(chan struct{})
	var runs atomic.Int32

	r := NewRunner(zap.NewNop())
	r.Register("blocker", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		entered <- struct{}{}
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}

	// Several ticks fire while the first run is still blocked. Every one of
	// them must be skipped rather than stacked.
	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("got %d overlapping runs, want 1", got)
	}

	cancel()
	close(release)
	r.Wait()
}

func TestRunner_ResumesAfterCompletion(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 16)

	r := NewRunner(zap.NewNop())
	r.Register("counter", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	// Wait for the startup run plus at least two ticker runs.
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("job stalled after %d runs", runs.Load())
		}
	}

	cancel()
	r.Wait()
	if got := runs.Load(); got < 3 {
		t.Errorf("got %d runs, want at least 3", got)
	}
}

func TestRunner_WaitReturnsAfterCancel(t *testing.T) {
	r := NewRunner(zap.NewNop())
	r.Register("noop", time.Hour, func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()

	finished := make(chan struct{})
	go func() {
		r.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}
