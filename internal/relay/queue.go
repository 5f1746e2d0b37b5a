package relay

import "context"

// defaultQueueCapacity bounds the outbound queue. Producers block (are
// backpressured) once this many messages are pending.
const defaultQueueCapacity = 100

// OutboundQueue is a bounded FIFO of serialized messages destined for the
// Voice Live service. A single sender pump drains it in strict enqueue
// order, which keeps audio-append messages sequential for correct speech
// recognition.
//
// The queue is a thin wrapper over a buffered channel; FIFO ordering and
// producer blocking come directly from channel semantics.
type OutboundQueue struct {
	ch chan []byte
}

// NewOutboundQueue creates a queue with the given capacity. A capacity of
// zero or less uses [defaultQueueCapacity].
func NewOutboundQueue(capacity int) *OutboundQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &OutboundQueue{ch: make(chan []byte, capacity)}
}

// Enqueue appends msg. When the queue is full the caller blocks until space
// frees up or ctx is done; messages are never dropped silently.
func (q *OutboundQueue) Enqueue(ctx context.Context, msg []byte) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue removes and returns the oldest message, blocking while the queue
// is empty until a message arrives or ctx is done.
func (q *OutboundQueue) Dequeue(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of pending messages.
func (q *OutboundQueue) Len() int { return len(q.ch) }
