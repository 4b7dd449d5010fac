package causal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// MemoryStore is an in-process EventStore. Appends serialize on a single
// mutex, which also guards the id counter; reads take the shared lock.
// Suitable for tests and single-process deployments that do not need
// durability; production uses the sqlite store.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
	byID   map[int64]*Event
	nextID int64
	closed bool
	logger *log.Logger
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[int64]*Event),
		nextID: 1,
		logger: log.Default().WithPrefix("causal.memstore"),
	}
}

// Append stores a copy of ev under the next id. The write is all-or-nothing:
// the event becomes visible to readers only with its cause link resolved.
func (s *MemoryStore) Append(ctx context.Context, ev *Event) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	stored := *ev
	stored.ID = s.nextID
	s.nextID++
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	stored.Embedding = append([]float32(nil), ev.Embedding...)

	s.events = append(s.events, &stored)
	s.byID[stored.ID] = &stored
	return stored.ID, nil
}

// Get returns the event with the given id, or nil if absent.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.byID[id], nil
}

// Recent returns matching events newest first.
func (s *MemoryStore) Recent(ctx context.Context, q RecentQuery) ([]*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	limit := clampWindow(q.Limit)
	if q.SessionID == "" {
		s.logger.Warn("recent scan without session filter; clamping to global window", "limit", limit)
	}

	var out []*Event
	for _, ev := range s.events {
		if q.SessionID != "" && ev.SessionID != q.SessionID {
			continue
		}
		if !q.Since.IsZero() && !ev.Timestamp.After(q.Since) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DirectEffectOf returns the earliest event caused by causeID, or nil.
func (s *MemoryStore) DirectEffectOf(ctx context.Context, causeID int64) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var earliest *Event
	for _, ev := range s.events {
		if ev.CauseID == nil || *ev.CauseID != causeID {
			continue
		}
		if earliest == nil || ev.Timestamp.Before(earliest.Timestamp) {
			earliest = ev
		}
	}
	return earliest, nil
}

// Len reports the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Close marks the store closed; subsequent operations fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
