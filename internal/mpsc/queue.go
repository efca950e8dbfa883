// Package mpsc provides an unbounded multi-producer, single-consumer FIFO queue.
package mpsc

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the queue has been closed and drained.
var ErrClosed = errors.New("mpsc: queue closed")

// Queue is an unbounded FIFO. Any goroutine may Push; exactly one goroutine is expected to Pop.
// Push never blocks.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	// notify wakes up the single consumer. It is buffered so a Push never waits for the consumer.
	notify chan struct{}
}

// New creates an empty, open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}, 1),
	}
}

// Push appends item to the tail of the queue. It returns false if the queue is closed, in which case
// the item is discarded.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wake()
	return true
}

// Pop removes and returns the head of the queue, waiting until an item is available, the queue is
// closed or ctx is done. Items queued before Close are still delivered; ErrClosed is returned only
// once the queue is empty.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		item, ok, closed := q.tryPop()
		if ok {
			return item, nil
		}
		if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

func (q *Queue[T]) tryPop() (T, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false, q.closed
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return item, true, q.closed
}

// Close stops the queue from accepting new items and wakes up a waiting consumer. It is safe to call
// Close more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wake()
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
