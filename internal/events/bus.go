// Package events delivers unlock and insight notifications to
// subscribers.
//
// Publish never blocks: each subscriber owns an unbounded FIFO queue and
// drains it at its own pace with Next. Delivery is at most once per
// subscriber; a subscriber that joins late does not see earlier events.
package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Next once the subscription is closed and its
// queue drained.
var ErrClosed = errors.New("events: subscription closed")

// Kind distinguishes event payloads.
type Kind int

const (
	// KindAchievementUnlocked is emitted once per achievement, on the
	// transition to full progress.
	KindAchievementUnlocked Kind = iota + 1
	// KindInsightsGenerated is emitted after each insight evaluation.
	KindInsightsGenerated
)

func (k Kind) String() string {
	switch k {
	case KindAchievementUnlocked:
		return "achievement_unlocked"
	case KindInsightsGenerated:
		return "insights_generated"
	}
	return "unknown"
}

// AchievementUnlocked is the payload of KindAchievementUnlocked.
type AchievementUnlocked struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Rarity     string    `json:"rarity"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// InsightsGenerated is the payload of KindInsightsGenerated.
type InsightsGenerated struct {
	Period       string   `json:"period"`
	Personalized bool     `json:"personalized"`
	RuleIDs      []string `json:"rule_ids"`
}

// Event is one notification. Exactly one payload is set, matching Kind.
type Event struct {
	Kind        Kind
	At          time.Time
	Achievement *AchievementUnlocked
	Insights    *InsightsGenerated
}

// Bus fans events out to subscribers. The zero value is not usable; a
// nil *Bus discards everything.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	next   uint64
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Publish delivers e to every current subscriber. It never blocks.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		s.q.enqueue(e)
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed bus
// returns an already-closed subscription.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{q: newQueue(), bus: b}
	if b == nil {
		s.q.close()
		return s
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.q.close()
		return s
	}
	b.next++
	s.id = b.next
	b.subs[s.id] = s
	return s
}

// Close closes every subscription. Already queued events stay readable.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		s.q.close()
		delete(b.subs, id)
	}
}

func (b *Bus) remove(id uint64) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscription is one subscriber's queue.
type Subscription struct {
	id  uint64
	q   *queue
	bus *Bus
}

// Next returns the next event, waiting until one is available, the
// subscription is closed and drained (ErrClosed), or ctx is done.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		if e, ok := s.q.tryDequeue(); ok {
			return e, nil
		}
		if s.q.drained() {
			return Event{}, ErrClosed
		}
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.q.wait():
		}
	}
}

// TryNext returns the next event without waiting.
func (s *Subscription) TryNext() (Event, bool) {
	return s.q.tryDequeue()
}

// Pending returns the number of queued events.
func (s *Subscription) Pending() int {
	return s.q.len()
}

// Close unsubscribes. Events already queued remain readable.
func (s *Subscription) Close() {
	s.bus.remove(s.id)
	s.q.close()
}
