package events

import (
	"sync"
)

// queue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so Publish never blocks on a slow subscriber.
// A buffered channel of size 1 signals availability and allows
// context-aware waiting.
type queue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

func newQueue() *queue {
	return &queue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *queue) enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking; the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue removes the front event without blocking.
func (q *queue) tryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Clear the slot so payload pointers can be collected.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// drained reports whether the queue is closed and empty.
func (q *queue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

func (q *queue) wait() <-chan struct{} {
	return q.signal
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// close stops further enqueues and wakes any waiter. Queued events remain
// readable.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
