package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeDrainer struct {
	mu        sync.Mutex
	results   []int
	err       error
	drains    int
	recovered int
	onDrain   func()
}

func (f *fakeDrainer) Drain(ctx context.Context, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drains++
	if f.onDrain != nil {
		f.onDrain()
	}
	if f.err != nil {
		return 0, f.err
	}
	if len(f.results) == 0 {
		return 0, nil
	}
	n := f.results[0]
	f.results = f.results[1:]
	return n, nil
}

func (f *fakeDrainer) Recover(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recovered++
	return 2, nil
}

func TestTickKeepsDrainingFullBatches(t *testing.T) {
	f := &fakeDrainer{results: []int{5, 5, 3}}
	if !tick(context.Background(), f, 5) {
		t.Fatalf("expected tick to continue")
	}
	if f.drains != 3 {
		t.Fatalf("expected 3 drains, got %d", f.drains)
	}
}

func TestTickStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeDrainer{err: context.Canceled}
	if tick(ctx, f, 5) {
		t.Fatalf("expected tick to stop after cancellation")
	}
}

func TestTickSurvivesDrainError(t *testing.T) {
	f := &fakeDrainer{err: errors.New("broker down")}
	if !tick(context.Background(), f, 5) {
		t.Fatalf("expected loop to continue after a drain error")
	}
}

func TestRunRecoversThenDrainsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeDrainer{}
	f.onDrain = func() {
		if f.drains >= 2 {
			cancel()
		}
	}

	done := make(chan struct{})
	go func() {
		run(ctx, f, time.Millisecond, 5)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker loop did not stop")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recovered != 1 || f.drains < 2 {
		t.Fatalf("expected one recover and at least two drains, got %d/%d", f.recovered, f.drains)
	}
}
