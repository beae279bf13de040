package memory

import (
	"context"
	"sync"

	"tracelot/internal/events"
)

// Store keeps emitted events in memory. It backs tests and the local
// inspection endpoint; production fan-out goes through the stream sinks.
type Store struct {
	mu     sync.RWMutex
	events []events.Event
}

// NewStore constructs an empty in-memory event store.
func NewStore() *Store {
	return &Store{}
}

// Append records the event. Never fails.
func (s *Store) Append(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns all events in emission order.
func (s *Store) List(_ context.Context) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Event{}, s.events...), nil
}

// ListByIdentifier returns events touching one item, in emission order.
func (s *Store) ListByIdentifier(_ context.Context, identifier string) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []events.Event
	for _, e := range s.events {
		if e.Identifier == identifier {
			out = append(out, e)
		}
	}
	return out, nil
}
