package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatpanel/internal/models"
)

func TestQueue_FIFO(t *testing.T) {
	var mu sync.Mutex
	var applied []string
	done := make(chan struct{})

	q := NewQueue(64, func(ev models.Event) {
		mu.Lock()
		applied = append(applied, ev.Timestamp)
		if len(applied) == 10 {
			close(done)
		}
		mu.Unlock()
	}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	for i := 0; i < 10; i++ {
		if err := q.Enqueue(ctx, models.Event{Timestamp: fmt.Sprintf("%d", i)}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue did not drain in time")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, ts := range applied {
		if ts != fmt.Sprintf("%d", i) {
			t.Errorf("index %d: expected %d, got %s", i, i, ts)
		}
	}
}

func TestQueue_SingleConsumer(t *testing.T) {
	// Apply must never be entered concurrently, even with many producers.
	var active, maxActive int32
	var mu sync.Mutex
	applied := make(chan struct{}, 100)

	q := NewQueue(4, func(ev models.Event) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		applied <- struct{}{}
	}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	var wg sync.WaitGroup
	for p := 0; p < 5; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_ = q.Enqueue(ctx, models.Event{})
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		select {
		case <-applied:
		case <-time.After(2 * time.Second):
			t.Fatal("events not applied in time")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if maxActive != 1 {
		t.Errorf("apply ran with concurrency %d", maxActive)
	}
}

func TestQueue_Discard(t *testing.T) {
	var mu sync.Mutex
	var applied int

	q := NewQueue(64, func(ev models.Event) {
		mu.Lock()
		applied++
		mu.Unlock()
	}, nil, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = q.Enqueue(ctx, models.Event{})
	}

	// Not running yet: all five are queued, then discarded before drain
	if q.Len() != 5 {
		t.Fatalf("expected 5 queued events, got %d", q.Len())
	}
	q.Discard()
	if q.Len() != 0 {
		t.Errorf("expected empty queue after discard, got %d", q.Len())
	}

	mu.Lock()
	defer mu.Unlock()
	if applied != 0 {
		t.Errorf("discarded events were applied: %d", applied)
	}
}

func TestQueue_DropAtDrainBoundary(t *testing.T) {
	var mu sync.Mutex
	var applied []string
	dropping := true
	done := make(chan struct{})

	q := NewQueue(64, func(ev models.Event) {
		mu.Lock()
		applied = append(applied, ev.Timestamp)
		mu.Unlock()
		close(done)
	}, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dropping
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	_ = q.Enqueue(ctx, models.Event{Timestamp: "dropped"})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	dropping = false
	mu.Unlock()

	_ = q.Enqueue(ctx, models.Event{Timestamp: "kept"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event not applied after drop flag cleared")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 || applied[0] != "kept" {
		t.Errorf("unexpected applied events: %v", applied)
	}
}

func TestQueue_RunStopsOnCancel(t *testing.T) {
	q := NewQueue(4, func(models.Event) {}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- q.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Run did not return after cancel")
	}
}
