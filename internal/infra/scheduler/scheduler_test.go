package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	job := func(ctx context.Context) (int, int, error) {
		runs.Add(1)
		return 0, 0, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(20*time.Millisecond, job, nil)
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 runs, got %d", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestSchedulerStopsWhenContextAlreadyCanceled(t *testing.T) {
	var runs atomic.Int32
	job := func(ctx context.Context) (int, int, error) {
		runs.Add(1)
		return 0, 0, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		New(10*time.Millisecond, job, nil).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop for canceled context")
	}
	if runs.Load() != 0 {
		t.Fatalf("expected no runs for canceled context, got %d", runs.Load())
	}
}
