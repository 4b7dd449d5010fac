package causal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/threadline-ai/causalmem/embedder"
	"github.com/threadline-ai/causalmem/oracle"
)

// Linker records new events and infers their cause links. For each new
// event it searches recent similar events, asks the oracle to confirm a
// causal relationship, and appends the event with the confirmed link in
// a single atomic write.
type Linker struct {
	store    EventStore
	embedder embedder.Embedder
	oracle   oracle.Oracle
	config   *Config
	logger   *log.Logger
}

// NewLinker creates a Linker. The embedder and oracle are injected
// capabilities; pass oracle.Disabled{} to record root events only.
func NewLinker(store EventStore, emb embedder.Embedder, orc oracle.Oracle, config *Config) *Linker {
	cfg := config.withDefaults()
	if orc == nil {
		orc = oracle.Disabled{}
	}
	return &Linker{
		store:    store,
		embedder: emb,
		oracle:   orc,
		config:   cfg,
		logger:   cfg.Logger,
	}
}

// Record embeds effectText, links it to its most plausible confirmed
// cause, and appends the resulting event. Capability failures degrade:
// if the embedder is unavailable the event is stored unembedded and
// unlinked; if the oracle is unavailable a candidate is skipped. Only a
// store failure is returned as an error.
func (l *Linker) Record(ctx context.Context, effectText, sessionID, conversationID string) (int64, error) {
	ev := &Event{
		EffectText:     effectText,
		SessionID:      sessionID,
		ConversationID: conversationID,
	}

	emb, err := l.embedder.Embed(ctx, effectText)
	if err != nil {
		// Degrade to a root event rather than dropping the record.
		l.logger.Warn("embedding failed; storing unlinked event", "err", err)
		id, serr := l.store.Append(ctx, ev)
		if serr != nil {
			return 0, fmt.Errorf("append event: %w", serr)
		}
		return id, nil
	}
	ev.Embedding = emb

	if cause, relationship := l.confirmCause(ctx, emb, effectText); cause != nil {
		causeID := cause.ID
		ev.CauseID = &causeID
		ev.RelationshipText = relationship
		l.logger.Debug("cause confirmed", "cause_id", causeID, "relationship", relationship)
	}

	id, err := l.store.Append(ctx, ev)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return id, nil
}

// confirmCause ranks recent similar events and returns the first one the
// oracle confirms, with the oracle's relationship text.
//
// Selection is first-confirmed-wins over the (similarity desc, timestamp
// desc) ranking: a lower-similarity candidate can win if every candidate
// ranked above it is rejected. There is no backtracking.
func (l *Linker) confirmCause(ctx context.Context, effectEmbedding []float32, effectText string) (*Event, string) {
	candidates := l.potentialCauses(ctx, effectEmbedding, effectText)

	for _, cand := range candidates {
		relationship, err := l.oracle.Judge(ctx, cand.EffectText, effectText)
		if err != nil {
			// Unreachable oracle counts as "no relationship" for this
			// candidate; the next one may still be confirmed.
			l.logger.Warn("oracle judgment failed", "cause_id", cand.ID, "err", err)
			continue
		}
		if relationship != "" {
			return cand, relationship
		}
	}
	return nil, ""
}

type scoredEvent struct {
	event      *Event
	similarity float64
}

// potentialCauses returns up to MaxPotentialCauses events from the decay
// window, ranked by (similarity desc, timestamp desc). Events textually
// identical to the new effect are skipped, as are events whose embedding
// mismatches in dimension or has zero norm.
func (l *Linker) potentialCauses(ctx context.Context, effectEmbedding []float32, effectText string) []*Event {
	recent, err := l.store.Recent(ctx, RecentQuery{
		Since: time.Now().Add(-l.config.TimeDecay),
		Limit: l.config.CandidateLimit,
	})
	if err != nil {
		l.logger.Warn("candidate scan failed", "err", err)
		return nil
	}

	var scored []scoredEvent
	for _, ev := range recent {
		if ev.EffectText == effectText {
			continue
		}
		sim, ok := CosineSimilarity(effectEmbedding, ev.Embedding)
		if !ok || sim < l.config.SimilarityThreshold {
			continue
		}
		scored = append(scored, scoredEvent{event: ev, similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].similarity != scored[j].similarity {
			return scored[i].similarity > scored[j].similarity
		}
		return scored[i].event.Timestamp.After(scored[j].event.Timestamp)
	})

	if len(scored) > l.config.MaxPotentialCauses {
		scored = scored[:l.config.MaxPotentialCauses]
	}
	out := make([]*Event, len(scored))
	for i, s := range scored {
		out[i] = s.event
	}
	return out
}
