// Package progress carries status events from background work to the
// observer and tracks the per-file status the observer renders.
package progress

import (
	"sync"

	"docsum/internal/domain"
)

// Source is the observer side of a progress channel.
type Source interface {
	Drain() []domain.Event
}

// Mailbox is an in-process progress channel. Publish never blocks on the
// observer; Drain hands over everything queued since the last call.
type Mailbox struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewMailbox() *Mailbox { return &Mailbox{} }

func (m *Mailbox) Publish(e domain.Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

// Drain returns queued events in publish order and empties the queue.
func (m *Mailbox) Drain() []domain.Event {
	m.mu.Lock()
	out := m.events
	m.events = nil
	m.mu.Unlock()
	return out
}

// Requeue puts events back ahead of anything published since they were
// drained.
func (m *Mailbox) Requeue(events []domain.Event) {
	if len(events) == 0 {
		return
	}
	m.mu.Lock()
	m.events = append(append(make([]domain.Event, 0, len(events)+len(m.events)), events...), m.events...)
	m.mu.Unlock()
}

// Len is the number of undrained events.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Fanout publishes every event to all of its publishers.
type Fanout []domain.Publisher

func (f Fanout) Publish(e domain.Event) {
	for _, p := range f {
		p.Publish(e)
	}
}
