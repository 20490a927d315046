package store

import (
	"sync"
	"sync/atomic"
)

// versionCounter mirrors the persisted store version and fans changes out
// to watchers.
//
// Thread-safety: current is lock-free; publish, watch and cancel serialize
// on mu. Only the write path publishes.
type versionCounter struct {
	v atomic.Uint64

	mu       sync.Mutex
	watchers map[int]chan uint64
	nextID   int
	closed   bool
}

func newVersionCounter(start uint64) *versionCounter {
	c := &versionCounter{watchers: make(map[int]chan uint64)}
	c.v.Store(start)
	return c
}

func (c *versionCounter) current() uint64 {
	return c.v.Load()
}

// publish stores v and offers it to every watcher without blocking.
// Each watcher channel has a buffer of one; a stale unread value is
// replaced by the newer one.
func (c *versionCounter) publish(v uint64) {
	c.v.Store(v)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

func (c *versionCounter) watch() (<-chan uint64, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan uint64, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextID
	c.nextID++
	c.watchers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if w, ok := c.watchers[id]; ok {
				delete(c.watchers, id)
				close(w)
			}
		})
	}
	return ch, cancel
}

func (c *versionCounter) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.watchers {
		delete(c.watchers, id)
		close(ch)
	}
}
