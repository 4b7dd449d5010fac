package memory_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/threadline-ai/causalmem/causal"
	"github.com/threadline-ai/causalmem/memory"
	"github.com/threadline-ai/causalmem/recall"
	"github.com/threadline-ai/causalmem/relevance"
)

// stubEmbedder maps every text to the same unit vector so all events are
// mutually similar.
type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (stubEmbedder) Dimensions() int { return 3 }

// countingFetcher loads sessions and counts how often it is consulted.
type countingFetcher struct {
	calls int
}

func (f *countingFetcher) FetchSession(ctx context.Context, sessionID string) (any, error) {
	f.calls++
	return "session-record-" + sessionID, nil
}

func newTestService(t *testing.T, cfg *memory.Config) (*memory.Service, *causal.MemoryStore) {
	t.Helper()
	store := causal.NewMemoryStore()
	svc, err := memory.New(store, stubEmbedder{}, nil, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return svc, store
}

func TestService_RecordEventAndNarrative(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil)
	defer svc.Close()

	if !svc.RecordEvent(ctx, "the pipeline started", "s1", "c1") {
		t.Fatal("Expected the event to be recorded")
	}
	if store.Len() != 1 {
		t.Fatalf("Expected 1 stored event, got %d", store.Len())
	}

	narrative := svc.Narrative(ctx, "what happened", "s1")
	if !strings.HasPrefix(narrative, "Initially,") {
		t.Errorf("Expected a narrative, got %q", narrative)
	}
}

func TestService_RecordEventRejectsEmpty(t *testing.T) {
	svc, store := newTestService(t, nil)
	defer svc.Close()

	if svc.RecordEvent(context.Background(), "", "s1", "c1") {
		t.Error("Expected an empty event to be rejected")
	}
	if store.Len() != 0 {
		t.Errorf("Expected no stored events, got %d", store.Len())
	}
}

func TestService_RecordTurnUpdatesLearning(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil)

	ok := svc.RecordTurn(ctx, "s1", "c1", recall.Turn{
		Agent:   "executor",
		Content: "applied the database migration and restarted the billing service",
	}, 250)
	if !ok {
		t.Fatal("Expected the turn to be recorded")
	}

	// Close drains the background queue before learning is inspected.
	svc.Close()
	for res := range svc.TaskResults() {
		if res.Err != nil {
			t.Errorf("Background task %s failed: %v", res.Name, res.Err)
		}
	}

	state, found := svc.Learning("s1", "executor")
	if !found {
		t.Fatal("Expected a learning state for the agent")
	}
	if state.InteractionCount != 1 {
		t.Errorf("Expected 1 interaction, got %d", state.InteractionCount)
	}
	if state.AverageResponseWords <= 0 {
		t.Errorf("Expected a positive average response length, got %f", state.AverageResponseWords)
	}
	if state.AverageResponseTimeMs != 250 {
		t.Errorf("Expected response time 250ms, got %f", state.AverageResponseTimeMs)
	}
	if state.TopicFrequency["migration"] != 1 {
		t.Errorf("Expected migration among tracked topics, got %v", state.TopicFrequency)
	}

	// One event for the turn itself, one for the learning update.
	if store.Len() < 2 {
		t.Errorf("Expected turn and learning events in the log, got %d", store.Len())
	}
}

func TestService_LearningAccumulates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	svc.RecordTurn(ctx, "s1", "c1", recall.Turn{Agent: "planner", Content: "one two three four"}, 100)
	svc.RecordTurn(ctx, "s1", "c1", recall.Turn{Agent: "planner", Content: "five six"}, 300)
	svc.Close()

	state, found := svc.Learning("s1", "planner")
	if !found {
		t.Fatal("Expected a learning state")
	}
	if state.InteractionCount != 2 {
		t.Errorf("Expected 2 interactions, got %d", state.InteractionCount)
	}
	if state.AverageResponseWords != 3 {
		t.Errorf("Expected average of 3 words, got %f", state.AverageResponseWords)
	}
	if state.AverageResponseTimeMs != 200 {
		t.Errorf("Expected running average of 200ms, got %f", state.AverageResponseTimeMs)
	}
}

func TestService_SessionCaching(t *testing.T) {
	ctx := context.Background()
	fetcher := &countingFetcher{}
	svc, _ := newTestService(t, &memory.Config{Sessions: fetcher})
	defer svc.Close()

	first, err := svc.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	second, err := svc.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}

	if first != second {
		t.Errorf("Expected the cached record, got %v and %v", first, second)
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected a single fetch, got %d", fetcher.calls)
	}
}

func TestService_SessionWithoutFetcher(t *testing.T) {
	svc, _ := newTestService(t, nil)
	defer svc.Close()

	record, err := svc.Session(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if record != nil {
		t.Errorf("Expected nil without a fetcher, got %v", record)
	}
}

func TestService_RelevantContext(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	svc.RecordEvent(ctx, "the user asked for a billing report", "s1", "c1")
	svc.RecordTurn(ctx, "s1", "c1", recall.Turn{
		Agent:   "executor",
		Content: "generated the billing report for March",
	}, 0)
	// Allow the background archive write to land.
	time.Sleep(100 * time.Millisecond)

	now := time.Now()
	history := []relevance.HistoryEntry{
		{ConversationID: "c1", Directive: "update the billing report", CreatedAt: now},
		{ConversationID: "c2", Directive: "compose a poem about rivers", CreatedAt: now},
	}
	turns := []relevance.Turn{
		{Agent: "executor", Content: "billing report generated"},
	}

	payload := svc.RelevantContext(ctx, "s1", "update the billing report", history, turns)
	svc.Close()

	if payload.SessionID != "s1" {
		t.Errorf("Expected session s1, got %q", payload.SessionID)
	}
	if payload.TotalConversations != 2 {
		t.Errorf("Expected 2 total conversations, got %d", payload.TotalConversations)
	}
	if len(payload.RelevantHistory) != 1 || payload.RelevantHistory[0].ConversationID != "c1" {
		t.Errorf("Expected only the billing conversation, got %+v", payload.RelevantHistory)
	}
	if payload.CausalNarrative == "" {
		t.Error("Expected a causal narrative")
	}
	if payload.Domain == "" {
		t.Error("Expected a domain inference result")
	}
	if payload.ContextSummary == "" {
		t.Error("Expected a context summary")
	}
	if len(payload.RecalledTurns) == 0 {
		t.Error("Expected the archived turn to be recalled")
	}
}
