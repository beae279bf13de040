package items

import (
	"context"
	"sync"
	"time"

	"tracelot/internal/ledger/models"
	id "tracelot/pkg/domain"
	"tracelot/pkg/platform/sentinel"
)

// Clock supplies timestamps; injected for testability (defaults to time.Now).
type Clock func() time.Time

// InMemory keeps the whole registry under one RWMutex: the record store, the
// identifier index, the history log and the holder index mutate as a single
// unit, so readers only ever observe fully consistent snapshots. Mutations
// validate everything before touching any structure; a rejected operation
// leaves all four untouched.
type InMemory struct {
	mu           sync.RWMutex
	clock        Clock
	nextHandle   id.Handle
	records      map[id.Handle]*models.Record
	byIdentifier map[string]id.Handle
	history      map[id.Handle][]models.HistoryEvent
	held         map[id.HolderID][]id.Handle
}

// InMemoryOption configures an InMemory store.
type InMemoryOption func(*InMemory)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) InMemoryOption {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInMemory constructs an empty registry. Handles start at 1 and are never
// reused; lookups report presence explicitly rather than leaning on zero
// values.
func NewInMemory(opts ...InMemoryOption) *InMemory {
	s := &InMemory{
		clock:        time.Now,
		nextHandle:   1,
		records:      make(map[id.Handle]*models.Record),
		byIdentifier: make(map[string]id.Handle),
		history:      make(map[id.Handle][]models.HistoryEvent),
		held:         make(map[id.HolderID][]id.Handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint registers a new record. The request is assumed field-validated by the
// service; the store's own check is identifier uniqueness.
func (s *InMemory) Mint(_ context.Context, req models.MintRequest) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentifier[req.Identifier]; exists {
		return nil, sentinel.ErrAlreadyUsed
	}

	now := s.clock()
	rec, err := models.NewRecord(s.nextHandle, req.Identifier, req.To, req.FinalRecipient, req.ItemName, req.LocationOrigin, now)
	if err != nil {
		return nil, err
	}

	s.nextHandle++
	s.records[rec.Handle] = rec
	s.byIdentifier[rec.Identifier] = rec.Handle
	s.history[rec.Handle] = []models.HistoryEvent{models.Genesis(req.To, now)}
	s.held[req.To] = append(s.held[req.To], rec.Handle)

	out := *rec
	return &out, nil
}

// Transfer moves custody of the record named by identifier. The precondition
// chain runs in its fixed order inside the lock: unknown identifier, then
// custody, then recipient shape, then freeze. Nothing mutates until every
// check has passed.
func (s *InMemory) Transfer(_ context.Context, caller id.HolderID, identifier string, to id.HolderID) (*models.Record, models.HistoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.byIdentifier[identifier]
	if !ok {
		return nil, models.HistoryEvent{}, sentinel.ErrNotFound
	}
	rec := s.records[handle]
	if err := rec.CanRelease(caller, to); err != nil {
		return nil, models.HistoryEvent{}, err
	}

	now := s.clock()
	if events := s.history[handle]; len(events) > 0 {
		// Timestamps must be non-decreasing within one record's history.
		if last := events[len(events)-1].Timestamp; now.Before(last) {
			now = last
		}
	}

	s.removeHeld(caller, handle)
	s.held[to] = append(s.held[to], handle)
	event := models.HistoryEvent{From: caller, To: to, Timestamp: now}
	s.history[handle] = append(s.history[handle], event)
	rec.ApplyTransfer(to)

	out := *rec
	return &out, event, nil
}

// removeHeld drops the handle from the holder's set without preserving
// order (swap with last and truncate). Must be called holding s.mu.
func (s *InMemory) removeHeld(holder id.HolderID, handle id.Handle) {
	handles := s.held[holder]
	for i := range handles {
		if handles[i] == handle {
			handles[i] = handles[len(handles)-1]
			handles = handles[:len(handles)-1]
			break
		}
	}
	if len(handles) == 0 {
		delete(s.held, holder)
		return
	}
	s.held[holder] = handles
}

// FindByIdentifier returns a snapshot of the record, or ErrNotFound.
func (s *InMemory) FindByIdentifier(_ context.Context, identifier string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handle, ok := s.byIdentifier[identifier]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.records[handle]
	return &out, nil
}

// History returns the record's custody history in order. A handle that was
// never minted yields an empty history, not an error.
func (s *InMemory) History(_ context.Context, handle id.Handle) ([]models.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HistoryEvent{}, s.history[handle]...), nil
}

// HeldBy lists the identifiers currently held by the holder. Listing order
// follows the holder-index set and is not stable across transfers.
func (s *InMemory) HeldBy(_ context.Context, holder id.HolderID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handles := s.held[holder]
	identifiers := make([]string, 0, len(handles))
	for _, h := range handles {
		identifiers = append(identifiers, s.records[h].Identifier)
	}
	return identifiers, nil
}

// MintedBy returns snapshots of every record whose origin holder matches, in
// handle-creation order. Linear scan; acceptable at registry scale.
func (s *InMemory) MintedBy(_ context.Context, holder id.HolderID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Record
	for h := id.Handle(1); h < s.nextHandle; h++ {
		rec := s.records[h]
		if rec.OriginHolder == holder {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Snapshot returns summary rows for every record in handle-creation order.
func (s *InMemory) Snapshot(_ context.Context) ([]models.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Summary, 0, len(s.records))
	for h := id.Handle(1); h < s.nextHandle; h++ {
		out = append(out, s.records[h].Summarize())
	}
	return out, nil
}
