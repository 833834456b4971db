// Package events fans out note change notifications to the owner's open
// streams, so clients know when to re-fetch their note list.
package events

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/server/metrics"
)

type Kind string

const (
	NoteCreated Kind = "note.created"
	NoteUpdated Kind = "note.updated"
	NotePinned  Kind = "note.pinned"
	NoteDeleted Kind = "note.deleted"
)

// Event tells a client that one of its notes changed. It carries no note
// content.
type Event struct {
	UserID string    `json:"-"`
	NoteID string    `json:"noteId"`
	Kind   Kind      `json:"kind"`
	At     time.Time `json:"at"`
}

// Publisher is the side of the broker used by the note service.
type Publisher interface {
	Publish(e Event)
}

type subscription struct {
	ch chan Event
}

// Broker is a per-user fan-out. Publish never blocks: a subscriber whose
// buffer is full misses the event.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	buffer int
	closed bool
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{subs: make(map[string]map[*subscription]struct{}), buffer: buffer}
}

// Subscribe registers a stream for userID. The returned cancel func closes
// the channel and may be called more than once.
func (b *Broker) Subscribe(userID string) (<-chan Event, func()) {
	s := &subscription{ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*subscription]struct{})
	}
	b.subs[userID][s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[userID]; ok {
				if _, ok := set[s]; ok {
					delete(set, s)
					close(s.ch)
				}
				if len(set) == 0 {
					delete(b.subs, userID)
				}
			}
		})
	}
	return s.ch, cancel
}

func (b *Broker) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs[e.UserID] {
		select {
		case s.ch <- e:
		default:
			metrics.EventsDroppedTotal.Inc()
		}
	}
}

// Subscribers returns the number of open streams for userID.
func (b *Broker) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

// Close ends every stream. Later subscriptions get an already closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for userID, set := range b.subs {
		for s := range set {
			close(s.ch)
		}
		delete(b.subs, userID)
	}
}
