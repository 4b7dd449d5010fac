package causal

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned by store operations after Close.
var ErrStoreClosed = errors.New("event store closed")

// MaxScanWindow caps the number of events examined when a query carries
// no session filter. Without it a global query degrades into a full log
// scan as the store grows.
const MaxScanWindow = 1000

// RecentQuery selects a window of events, newest first.
type RecentQuery struct {
	// SessionID filters events to one session when non-empty.
	SessionID string

	// Since excludes events at or before this instant. Zero means no
	// lower bound.
	Since time.Time

	// Limit bounds the result size. Values <= 0 or above MaxScanWindow
	// are clamped to MaxScanWindow.
	Limit int
}

// EventStore is the append-mostly log backing the causal engine.
//
// Append must be atomic and must serialize id assignment: ids are unique
// and monotonic even under concurrent writers. Reads may run concurrently
// with writes; a reader can observe an event before its effects exist,
// but never a partially written event.
//
// Lookup misses are not errors: Get and DirectEffectOf return (nil, nil)
// when nothing matches.
type EventStore interface {
	// Append stores ev, assigning the next id and, when ev.Timestamp is
	// zero, the current time. Returns the assigned id.
	Append(ctx context.Context, ev *Event) (int64, error)

	// Get returns the event with the given id, or nil if absent.
	Get(ctx context.Context, id int64) (*Event, error)

	// Recent returns events matching q ordered newest first.
	Recent(ctx context.Context, q RecentQuery) ([]*Event, error)

	// DirectEffectOf returns the earliest event (by timestamp) whose
	// CauseID equals causeID, or nil if the event has no recorded effect.
	DirectEffectOf(ctx context.Context, causeID int64) (*Event, error)

	// Close releases store resources.
	Close() error
}

func clampWindow(limit int) int {
	if limit <= 0 || limit > MaxScanWindow {
		return MaxScanWindow
	}
	return limit
}
