package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/threadline-ai/causalmem/causal"
	"github.com/threadline-ai/causalmem/embedder"
	"github.com/threadline-ai/causalmem/oracle"
	"github.com/threadline-ai/causalmem/recall"
	"github.com/threadline-ai/causalmem/relevance"
	"github.com/threadline-ai/causalmem/sessioncache"
)

// domainQuery is the probe used to infer what a session is about from
// its causal history.
const domainQuery = "Based on the session history, identify the primary technical domain of this project (e.g., 'Software Engineering in Python', 'Creative Writing', 'Biological System Design')."

// Token budgets for the assembled context payload.
const (
	domainTokenBudget    = 200
	narrativeTokenBudget = 1500
)

// eventSnippetLen bounds how much turn content is quoted in a causal
// event.
const eventSnippetLen = 100

// SessionFetcher loads session records from whatever durable store the
// surrounding application uses. The facade only caches what it returns.
type SessionFetcher interface {
	FetchSession(ctx context.Context, sessionID string) (any, error)
}

// Config configures the memory Service.
type Config struct {
	// Causal configures linking and reconstruction. Defaults to
	// causal.DefaultConfig.
	Causal *causal.Config

	// Relevance configures history filtering. Defaults to
	// relevance.DefaultConfig.
	Relevance *relevance.Config

	// CacheSize and CacheTTL bound the session cache. Defaults:
	// sessioncache.DefaultMaxSize, sessioncache.DefaultTTL.
	CacheSize int
	CacheTTL  time.Duration

	// RecallLimit is how many archived turns RelevantContext retrieves.
	// Default: 5.
	RecallLimit int

	// Workers and QueueSize bound the background task pool.
	// Defaults: 2 workers, queue of 64.
	Workers   int
	QueueSize int

	// Sessions loads session records on cache misses. Optional; without
	// it Session only serves cached entries.
	Sessions SessionFetcher

	// Logger receives facade diagnostics.
	Logger *log.Logger
}

// ContextPayload is everything the facade knows that is worth injecting
// into a prompt for one directive.
type ContextPayload struct {
	SessionID          string
	Domain             string
	CausalNarrative    string
	RelevantHistory    []relevance.ScoredEntry
	ContextSummary     string
	RecalledTurns      []recall.Turn
	TotalConversations int
}

// Service composes the causal engine, relevance filter, recall archive,
// session cache, and agent learning state behind one API.
type Service struct {
	linker        *causal.Linker
	reconstructor *causal.Reconstructor
	analyzer      *relevance.Analyzer
	recall        *recall.Store
	cache         *sessioncache.Cache
	learning      *learningBook
	tasks         *TaskQueue
	sessions      SessionFetcher
	recallLimit   int
	logger        *log.Logger
}

// New builds a Service from injected capabilities. The store, embedder,
// and oracle are shared with the causal engine; their lifecycles belong
// to the caller.
func New(store causal.EventStore, emb embedder.Embedder, orc oracle.Oracle, cfg *Config) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("event store is required")
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.RecallLimit <= 0 {
		cfg.RecallLimit = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("memory")
	}

	recallStore, err := recall.New(emb)
	if err != nil {
		return nil, fmt.Errorf("create recall store: %w", err)
	}

	return &Service{
		linker:        causal.NewLinker(store, emb, orc, cfg.Causal),
		reconstructor: causal.NewReconstructor(store, emb, cfg.Causal),
		analyzer:      relevance.NewAnalyzer(cfg.Relevance),
		recall:        recallStore,
		cache:         sessioncache.New(cfg.CacheSize, cfg.CacheTTL),
		learning:      newLearningBook(),
		tasks:         NewTaskQueue(cfg.Workers, cfg.QueueSize, logger.WithPrefix("memory.tasks")),
		sessions:      cfg.Sessions,
		recallLimit:   cfg.RecallLimit,
		logger:        logger,
	}, nil
}

// RecordEvent appends one effect to the causal log, linking it to a
// confirmed cause when one is found. Returns false when the event could
// not be stored; linking failures alone still count as success.
func (s *Service) RecordEvent(ctx context.Context, effectText, sessionID, conversationID string) bool {
	if effectText == "" {
		return false
	}
	if _, err := s.linker.Record(ctx, effectText, sessionID, conversationID); err != nil {
		s.logger.Error("event not recorded", "session", sessionID, "err", err)
		return false
	}
	return true
}

// RecordTurn folds one conversation turn into every layer of memory: a
// causal event describing the turn, a recall archive entry, and the
// agent's learning state. The archive write and learning update run in
// the background; only the causal append is synchronous.
func (s *Service) RecordTurn(ctx context.Context, sessionID, conversationID string, turn recall.Turn, responseTimeMs float64) bool {
	snippet := turn.Content
	if len(snippet) > eventSnippetLen {
		snippet = snippet[:eventSnippetLen]
	}
	eventText := fmt.Sprintf("%s responded in conversation: %s...", titleWord(turn.Agent), snippet)
	ok := s.RecordEvent(ctx, eventText, sessionID, conversationID)

	archived := s.tasks.Submit("archive-turn", func(taskCtx context.Context) error {
		return s.recall.RecordTurn(taskCtx, sessionID, turn)
	})
	if !archived {
		if err := s.recall.RecordTurn(ctx, sessionID, turn); err != nil {
			s.logger.Warn("turn not archived", "session", sessionID, "err", err)
		}
	}

	words := wordCount(turn.Content)
	topics := s.analyzer.ExtractTopics(turn.Content)
	learned := s.tasks.Submit("learning-update", func(taskCtx context.Context) error {
		s.updateLearning(taskCtx, sessionID, conversationID, turn.Agent, words, topics, responseTimeMs)
		return nil
	})
	if !learned {
		s.updateLearning(ctx, sessionID, conversationID, turn.Agent, words, topics, responseTimeMs)
	}

	return ok
}

func (s *Service) updateLearning(ctx context.Context, sessionID, conversationID, agent string, words int, topics []string, responseTimeMs float64) {
	state := s.learning.observe(sessionID, agent, words, topics, responseTimeMs, time.Now())
	summary := fmt.Sprintf("Agent %s learning updated: %d interactions, avg length %.1f words",
		agent, state.InteractionCount, state.AverageResponseWords)
	s.RecordEvent(ctx, summary, sessionID, conversationID)
}

// Narrative reconstructs the causal story behind query for one session.
// Always returns renderable text.
func (s *Service) Narrative(ctx context.Context, query, sessionID string) string {
	return s.reconstructor.Narrative(ctx, query, sessionID)
}

// FilterContext keeps only the history entries relevant to the current
// directive, best first.
func (s *Service) FilterContext(currentDirective string, history []relevance.HistoryEntry) []relevance.ScoredEntry {
	return s.analyzer.Filter(currentDirective, history)
}

// Summarize condenses conversation turns into a per-agent topic digest.
func (s *Service) Summarize(turns []relevance.Turn) string {
	return s.analyzer.Summarize(turns)
}

// RelevantContext assembles the full context payload for one directive:
// inferred domain, causal narrative, filtered history, a turn summary,
// and semantically recalled turns. Each part degrades independently.
func (s *Service) RelevantContext(ctx context.Context, sessionID, directive string, history []relevance.HistoryEntry, turns []relevance.Turn) *ContextPayload {
	payload := &ContextPayload{
		SessionID:          sessionID,
		TotalConversations: len(history),
	}

	payload.Domain = truncateContext(s.reconstructor.Narrative(ctx, domainQuery, sessionID), domainTokenBudget)
	payload.CausalNarrative = truncateContext(s.reconstructor.Narrative(ctx, directive, sessionID), narrativeTokenBudget)
	payload.RelevantHistory = s.analyzer.Filter(directive, history)
	payload.ContextSummary = s.analyzer.Summarize(turns)

	recalled, err := s.recall.Relevant(ctx, sessionID, directive, s.recallLimit)
	if err != nil {
		s.logger.Warn("recall failed", "session", sessionID, "err", err)
	}
	payload.RecalledTurns = recalled

	return payload
}

// Session returns the session record for id, consulting the cache first
// and falling back to the configured fetcher on a miss.
func (s *Service) Session(ctx context.Context, id string) (any, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached, nil
	}
	if s.sessions == nil {
		return nil, nil
	}
	record, err := s.sessions.FetchSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch session %s: %w", id, err)
	}
	if record != nil {
		s.cache.Set(id, record)
	}
	return record, nil
}

// Learning returns a snapshot of one agent's learning state.
func (s *Service) Learning(sessionID, agent string) (LearningState, bool) {
	return s.learning.get(sessionID, agent)
}

// Cache exposes the session cache for direct use.
func (s *Service) Cache() *sessioncache.Cache {
	return s.cache
}

// TaskResults exposes background task outcomes.
func (s *Service) TaskResults() <-chan TaskResult {
	return s.tasks.Results()
}

// Close drains background work. The injected store, embedder, and
// oracle are not closed here.
func (s *Service) Close() {
	s.tasks.Close()
}
