package recall_test

import (
	"context"
	"testing"

	"github.com/threadline-ai/causalmem/embedder"
	"github.com/threadline-ai/causalmem/recall"
)

// mapEmbedder returns a fixed vector per text so retrieval ordering is
// fully controlled by the test.
type mapEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}
	return []float32{0, 0, 1}, nil
}

func (m *mapEmbedder) Dimensions() int { return 3 }

func TestStore_RecordAndRecall(t *testing.T) {
	ctx := context.Background()
	emb := &mapEmbedder{vectors: map[string][]float32{
		"the billing report is ready": {1, 0, 0},
		"lunch is at noon":            {0, 1, 0},
		"where is the billing report": {1, 0, 0},
	}}

	store, err := recall.New(emb)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	turns := []recall.Turn{
		{Agent: "executor", Content: "the billing report is ready"},
		{Agent: "planner", Content: "lunch is at noon"},
	}
	for _, turn := range turns {
		if err := store.RecordTurn(ctx, "s1", turn); err != nil {
			t.Fatalf("RecordTurn failed: %v", err)
		}
	}

	results, err := store.Relevant(ctx, "s1", "where is the billing report", 5)
	if err != nil {
		t.Fatalf("Relevant failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected recalled turns")
	}
	if results[0].Content != "the billing report is ready" {
		t.Errorf("Expected the matching turn first, got %q", results[0].Content)
	}
	if results[0].Agent != "executor" {
		t.Errorf("Expected agent metadata to round-trip, got %q", results[0].Agent)
	}
}

func TestStore_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	store, err := recall.New(&mapEmbedder{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := store.RecordTurn(ctx, "s1", recall.Turn{Agent: "a", Content: "session one secret"}); err != nil {
		t.Fatalf("RecordTurn failed: %v", err)
	}

	results, err := store.Relevant(ctx, "s2", "session one secret", 5)
	if err != nil {
		t.Fatalf("Relevant failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no cross-session results, got %d", len(results))
	}
}

func TestStore_DegradesWhenEmbedderUnavailable(t *testing.T) {
	ctx := context.Background()
	store, err := recall.New(&mapEmbedder{err: embedder.ErrUnavailable})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := store.RecordTurn(ctx, "s1", recall.Turn{Agent: "a", Content: "anything"}); err != nil {
		t.Errorf("Expected a graceful skip, got %v", err)
	}

	results, err := store.Relevant(ctx, "s1", "anything", 5)
	if err != nil {
		t.Errorf("Expected a graceful empty result, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}
