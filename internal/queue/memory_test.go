package queue

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryFIFO(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	for _, ref := range []string{"a", "b", "c"} {
		if err := q.Push(ctx, ref); err != nil {
			t.Fatalf("push %s: %v", ref, err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		got, ok, err := q.Pop(ctx)
		if err != nil || !ok {
			t.Fatalf("pop: ok=%v err=%v", ok, err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
	if _, ok, _ := q.Pop(ctx); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestMemoryConcurrentPushPop(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Push(ctx, "ref")
		}()
	}
	wg.Wait()
	if q.Len() != 100 {
		t.Fatalf("expected 100 refs, got %d", q.Len())
	}

	seen := 0
	for {
		_, ok, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if !ok {
			break
		}
		seen++
	}
	if seen != 100 {
		t.Fatalf("expected 100 pops, got %d", seen)
	}
}

func TestMemoryCancelledContext(t *testing.T) {
	q := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Push(ctx, "a"); err == nil {
		t.Fatalf("expected error on cancelled push")
	}
}
