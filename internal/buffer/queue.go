// Package buffer holds the ordered hand-off queue used by agent
// collaborators to deliver events to a session.
package buffer

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the queue is closed and drained.
var ErrClosed = errors.New("buffer: queue closed")

// Queue is an unbounded FIFO. Push never blocks, so a producer (for example
// an MCP tool handler) can enqueue while the consumer is busy dispatching a
// previous item.
//
//	q := buffer.NewQueue[Event]()
//	go func() { q.Push(ev); q.Close() }()
//	for {
//	    ev, err := q.Pop(ctx)
//	    if err != nil {
//	        break
//	    }
//	    handle(ev)
//	}
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	err    error
	// ready has capacity one and is signalled whenever items or closed change.
	ready chan struct{}
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0, 8),
		ready: make(chan struct{}, 1),
	}
}

// Push appends an item. Items pushed after Close are dropped.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.items = append(q.items, item)
	q.signal()
}

// Pop removes the oldest item, waiting until one is available, the queue is
// closed, or ctx is done. Items queued before Close are still delivered.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			if len(q.items) > 0 || q.closed {
				q.signal()
			}
			q.mu.Unlock()
			return item, nil
		}
		if q.closed {
			err := q.err
			q.mu.Unlock()
			if err == nil {
				err = ErrClosed
			}
			return zero, err
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close stops the queue. Safe to call more than once.
func (q *Queue[T]) Close() {
	q.CloseWithError(nil)
}

// CloseWithError stops the queue and makes Pop return err, instead of
// ErrClosed, once the remaining items are drained. Only the first close
// decides the error.
func (q *Queue[T]) CloseWithError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.err = err
	q.signal()
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// signal must be called with mu held.
func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
