package causal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/threadline-ai/causalmem/causal"
)

func TestMemoryStore_MonotonicIDs(t *testing.T) {
	ctx := context.Background()
	store := causal.NewMemoryStore()

	for want := int64(1); want <= 3; want++ {
		id, err := store.Append(ctx, &causal.Event{EffectText: "event"})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if id != want {
			t.Errorf("Expected id %d, got %d", want, id)
		}
	}
}

func TestMemoryStore_GetMissReturnsNil(t *testing.T) {
	store := causal.NewMemoryStore()

	ev, err := store.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ev != nil {
		t.Errorf("Expected nil for unknown id, got %+v", ev)
	}
}

func TestMemoryStore_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := causal.NewMemoryStore()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := store.Append(ctx, &causal.Event{
			EffectText: "event",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			SessionID:  "s1",
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := store.Recent(ctx, causal.RecentQuery{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Errorf("Expected newest-first ordering, got %v before %v",
				events[i-1].Timestamp, events[i].Timestamp)
		}
	}
}

func TestMemoryStore_RecentFilters(t *testing.T) {
	ctx := context.Background()
	store := causal.NewMemoryStore()

	now := time.Now()
	old := &causal.Event{EffectText: "old", SessionID: "s1", Timestamp: now.Add(-48 * time.Hour)}
	fresh := &causal.Event{EffectText: "fresh", SessionID: "s1", Timestamp: now.Add(-time.Hour)}
	other := &causal.Event{EffectText: "other session", SessionID: "s2", Timestamp: now.Add(-time.Hour)}
	for _, ev := range []*causal.Event{old, fresh, other} {
		if _, err := store.Append(ctx, ev); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := store.Recent(ctx, causal.RecentQuery{
		SessionID: "s1",
		Since:     now.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 1 || events[0].EffectText != "fresh" {
		t.Errorf("Expected only the fresh s1 event, got %d events", len(events))
	}
}

func TestMemoryStore_RecentLimit(t *testing.T) {
	ctx := context.Background()
	store := causal.NewMemoryStore()

	for i := 0; i < 10; i++ {
		if _, err := store.Append(ctx, &causal.Event{EffectText: "event", SessionID: "s1"}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := store.Recent(ctx, causal.RecentQuery{SessionID: "s1", Limit: 4})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 4 {
		t.Errorf("Expected limit of 4 events, got %d", len(events))
	}
}

func TestMemoryStore_DirectEffectOfEarliest(t *testing.T) {
	ctx := context.Background()
	store := causal.NewMemoryStore()

	causeID, err := store.Append(ctx, &causal.Event{EffectText: "cause"})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	now := time.Now()
	later := &causal.Event{EffectText: "later effect", CauseID: &causeID, Timestamp: now.Add(time.Minute)}
	earlier := &causal.Event{EffectText: "earlier effect", CauseID: &causeID, Timestamp: now}
	for _, ev := range []*causal.Event{later, earlier} {
		if _, err := store.Append(ctx, ev); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	child, err := store.DirectEffectOf(ctx, causeID)
	if err != nil {
		t.Fatalf("DirectEffectOf failed: %v", err)
	}
	if child == nil || child.EffectText != "earlier effect" {
		t.Errorf("Expected the earliest child, got %+v", child)
	}
}

func TestMemoryStore_ClosedFails(t *testing.T) {
	ctx := context.Background()
	store := causal.NewMemoryStore()
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := store.Append(ctx, &causal.Event{EffectText: "event"}); !errors.Is(err, causal.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed from Append, got %v", err)
	}
	if _, err := store.Recent(ctx, causal.RecentQuery{}); !errors.Is(err, causal.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed from Recent, got %v", err)
	}
}

func TestMemoryStore_AppendCopiesEvent(t *testing.T) {
	ctx := context.Background()
	store := causal.NewMemoryStore()

	embedding := []float32{1, 0, 0}
	ev := &causal.Event{EffectText: "event", Embedding: embedding}
	id, err := store.Append(ctx, ev)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	embedding[0] = 99
	stored, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Embedding[0] != 1 {
		t.Error("Expected stored embedding to be isolated from caller mutations")
	}
}
