package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := New("test", 3, nil)
	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		if err := p.Submit(context.Background(), func() {
			defer wg.Done()
			n.Add(1)
		}); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	p.Close()
	if n.Load() != 20 {
		t.Fatalf("expected 20 tasks, got %d", n.Load())
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New("test", 2, nil)
	defer p.Close()
	var cur, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		_ = p.Submit(context.Background(), func() {
			defer wg.Done()
			c := cur.Add(1)
			for {
				old := peak.Load()
				if c <= old || peak.CompareAndSwap(old, c) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)
		})
	}
	wg.Wait()
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, got %d", peak.Load())
	}
}

func TestSubmitAfterClose(t *testing.T) {
	p := New("test", 1, nil)
	p.Close()
	p.Close()
	if err := p.Submit(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSubmitHonoursContext(t *testing.T) {
	p := New("test", 1, nil)
	release := make(chan struct{})
	if err := p.Submit(context.Background(), func() { <-release }); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Submit(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(release)
	p.Close()
}

func TestPanickingTaskKeepsWorkerAlive(t *testing.T) {
	p := New("test", 1, nil)
	defer p.Close()
	_ = p.Submit(context.Background(), func() { panic("boom") })
	done := make(chan struct{})
	if err := p.Submit(context.Background(), func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panic")
	}
}
