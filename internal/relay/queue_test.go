package relay

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewOutboundQueue(10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, []byte(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		msg, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if want := fmt.Sprintf("msg-%d", i); string(msg) != want {
			t.Errorf("dequeue %d = %q, want %q", i, msg, want)
		}
	}
}

func TestQueueEnqueueBlocksWhenFull(t *testing.T) {
	q := NewOutboundQueue(1)
	ctx := context.Background()

	if err := q.Enqueue(ctx, []byte("first")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	blockedCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := q.Enqueue(blockedCtx, []byte("second"))
	if err != context.DeadlineExceeded {
		t.Errorf("enqueue on full queue = %v, want context.DeadlineExceeded", err)
	}

	// Draining frees capacity for the producer again.
	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := q.Enqueue(ctx, []byte("third")); err != nil {
		t.Errorf("enqueue after drain: %v", err)
	}
}

func TestQueueDequeueRespectsCancellation(t *testing.T) {
	q := NewOutboundQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("dequeue = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after cancellation")
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewOutboundQueue(0)
	ctx := context.Background()

	for i := 0; i < defaultQueueCapacity; i++ {
		if err := q.Enqueue(ctx, []byte("x")); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if q.Len() != defaultQueueCapacity {
		t.Errorf("Len = %d, want %d", q.Len(), defaultQueueCapacity)
	}
}
