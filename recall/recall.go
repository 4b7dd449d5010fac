// Package recall stores conversation turns in an embedded vector
// database (chromem-go) and retrieves the ones most similar to a query.
// It complements the causal engine: the reconstructor explains why
// things happened, recall surfaces what was said.
//
// Turns are namespaced per session, one chromem collection each, so one
// session's history never leaks into another's retrieval.
package recall

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/threadline-ai/causalmem/embedder"
)

// Turn is one recorded conversation contribution.
type Turn struct {
	ID        string
	Agent     string
	Content   string
	Timestamp time.Time

	// Similarity is set on retrieval results.
	Similarity float32
}

// Store is a per-session semantic archive of conversation turns.
type Store struct {
	db          *chromem.DB
	embedder    embedder.Embedder
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	logger      *log.Logger
}

// New creates a recall store using the injected embedding capability.
func New(emb embedder.Embedder) (*Store, error) {
	if emb == nil {
		return nil, errors.New("embedder is required")
	}
	return &Store{
		db:          chromem.NewDB(),
		embedder:    emb,
		collections: make(map[string]*chromem.Collection),
		logger:      log.Default().WithPrefix("recall"),
	}, nil
}

// RecordTurn embeds and archives one turn under its session. An
// unavailable embedder degrades to a skipped archive entry. Recall is
// an enrichment, not a system of record.
func (s *Store) RecordTurn(ctx context.Context, sessionID string, turn Turn) error {
	emb, err := s.embedder.Embed(ctx, turn.Content)
	if err != nil {
		if errors.Is(err, embedder.ErrUnavailable) {
			s.logger.Warn("embedding unavailable; turn not archived", "session", sessionID)
			return nil
		}
		return fmt.Errorf("embed turn: %w", err)
	}

	col, err := s.collection(sessionID)
	if err != nil {
		return err
	}

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	err = col.AddDocument(ctx, chromem.Document{
		ID:        turn.ID,
		Content:   turn.Content,
		Embedding: emb,
		Metadata: map[string]string{
			"agent":      turn.Agent,
			"session_id": sessionID,
			"timestamp":  ts.Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("archive turn: %w", err)
	}
	return nil
}

// Relevant returns up to limit archived turns most similar to query,
// best match first. An unavailable embedder yields an empty result, not
// an error.
func (s *Store) Relevant(ctx context.Context, sessionID, query string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 5
	}

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, embedder.ErrUnavailable) {
			s.logger.Warn("embedding unavailable; recall skipped", "session", sessionID)
			return nil, nil
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	col, err := s.collection(sessionID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults above the collection size.
	if count := col.Count(); count < limit {
		if count == 0 {
			return nil, nil
		}
		limit = count
	}

	results, err := col.QueryEmbedding(ctx, queryEmbedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query turn archive: %w", err)
	}

	turns := make([]Turn, 0, len(results))
	for _, res := range results {
		ts, _ := time.Parse(time.RFC3339, res.Metadata["timestamp"])
		turns = append(turns, Turn{
			ID:         res.ID,
			Agent:      res.Metadata["agent"],
			Content:    res.Content,
			Timestamp:  ts,
			Similarity: res.Similarity,
		})
	}
	return turns, nil
}

func (s *Store) collection(sessionID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[sessionID]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[sessionID]; ok {
		return col, nil
	}

	name := "session_" + sessionID
	if sessionID == "" {
		name = "global"
	}
	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[sessionID] = col
	return col, nil
}
