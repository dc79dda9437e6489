// Package event routes pattern lifecycle events to per-pattern subscribers.
package event

import (
	"sync"

	"github.com/lixenwraith/glyphloom/pattern"
)

// Subscription identifies one registered handler
// The zero value is not a valid subscription
type Subscription struct {
	PatternID string
	id        uint64
}

// Valid reports whether s was returned by Subscribe
func (s Subscription) Valid() bool {
	return s.id != 0
}

type entry struct {
	id      uint64
	handler pattern.Handler
}

// Bus dispatches events to the handlers subscribed to the event's pattern
//
// Dispatch:
//   - Handlers for one pattern run in subscription order
//   - Handlers run on the publishing goroutine, without the bus lock held
//   - A handler may subscribe or unsubscribe; changes apply to the next Publish
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   uint64
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]entry)}
}

// Subscribe registers handler for events of patternID
func (b *Bus) Subscribe(patternID string, handler pattern.Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[patternID] = append(b.handlers[patternID], entry{id: b.nextID, handler: handler})
	return Subscription{PatternID: patternID, id: b.nextID}
}

// Unsubscribe removes a handler, unknown subscriptions are ignored
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[s.PatternID]
	for i, e := range list {
		if e.id != s.id {
			continue
		}
		// Copy so an in-flight Publish keeps iterating its own snapshot
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, s.PatternID)
		} else {
			b.handlers[s.PatternID] = next
		}
		return
	}
}

// Publish delivers ev to every handler of ev.Pattern.ID
func (b *Bus) Publish(ev pattern.Event) {
	if ev.Pattern == nil {
		return
	}
	b.mu.RLock()
	list := b.handlers[ev.Pattern.ID]
	b.mu.RUnlock()

	for _, e := range list {
		e.handler(ev)
	}
}

// Clear drops every handler of patternID
func (b *Bus) Clear(patternID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, patternID)
}

// Reset drops all handlers
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.handlers)
}

// Count returns the number of handlers for patternID
func (b *Bus) Count(patternID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[patternID])
}
