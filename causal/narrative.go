package causal

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/threadline-ai/causalmem/embedder"
)

// Fixed narratives returned when reconstruction cannot produce a chain.
const (
	// NarrativeUnavailable is returned when the embedding capability is
	// down and the query cannot be matched against stored events.
	NarrativeUnavailable = "Causal memory not available"

	// NarrativeNoContext is returned when no stored event clears the
	// similarity threshold for the query.
	NarrativeNoContext = "No relevant causal context found in memory."
)

// Reconstructor turns a query into a chronological causal narrative: it
// finds the stored event best matching the query, walks its ancestry to
// the root cause, follows up to two consequence hops, and renders the
// chain as prose.
type Reconstructor struct {
	store    EventStore
	embedder embedder.Embedder
	config   *Config
	logger   *log.Logger
}

// NewReconstructor creates a Reconstructor over the given store and
// embedding capability.
func NewReconstructor(store EventStore, emb embedder.Embedder, config *Config) *Reconstructor {
	cfg := config.withDefaults()
	return &Reconstructor{
		store:    store,
		embedder: emb,
		config:   cfg,
		logger:   cfg.Logger,
	}
}

// Narrative renders the causal chain most relevant to query, scoped to
// sessionID when non-empty. It never returns an error: capability and
// store failures are converted to sentinel strings so the orchestration
// layer can degrade instead of surfacing an error page.
func (r *Reconstructor) Narrative(ctx context.Context, query, sessionID string) string {
	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", "err", err)
		return NarrativeUnavailable
	}

	target, err := r.bestMatch(ctx, queryEmbedding, sessionID)
	if err != nil {
		r.logger.Error("reconstruction failed", "err", err)
		return fmt.Sprintf("Error retrieving causal context: %v", err)
	}
	if target == nil {
		return NarrativeNoContext
	}

	path, err := r.ascend(ctx, target)
	if err != nil {
		r.logger.Error("reconstruction failed", "err", err)
		return fmt.Sprintf("Error retrieving causal context: %v", err)
	}

	consequences, err := r.descend(ctx, target, path)
	if err != nil {
		r.logger.Error("reconstruction failed", "err", err)
		return fmt.Sprintf("Error retrieving causal context: %v", err)
	}

	return formatNarrative(append(path, consequences...))
}

// bestMatch returns the event most similar to the query embedding, or nil
// when the best similarity falls below the threshold. Equal similarity
// breaks in favor of the more recent event.
func (r *Reconstructor) bestMatch(ctx context.Context, queryEmbedding []float32, sessionID string) (*Event, error) {
	pool, err := r.store.Recent(ctx, RecentQuery{
		SessionID: sessionID,
		Limit:     MaxScanWindow,
	})
	if err != nil {
		return nil, err
	}

	bestSim := -1.0
	var best *Event
	for _, ev := range pool {
		sim, ok := CosineSimilarity(queryEmbedding, ev.Embedding)
		if !ok {
			continue
		}
		newer := best != nil && ev.Timestamp.After(best.Timestamp)
		if sim > bestSim || (sim == bestSim && newer) {
			bestSim = sim
			best = ev
		}
	}

	if best == nil || bestSim < r.config.SimilarityThreshold {
		return nil, nil
	}
	return best, nil
}

// ascend walks cause links from target up to its root cause and returns
// the chain in ascending (root-first) order. The walk stops at an unset
// cause, a dangling reference, or a revisited id. Cause edges are
// inserted independently, so the graph is not guaranteed acyclic.
func (r *Reconstructor) ascend(ctx context.Context, target *Event) ([]*Event, error) {
	ancestry := []*Event{target}
	seen := map[int64]bool{target.ID: true}

	curr := target
	for curr.CauseID != nil {
		cause, err := r.store.Get(ctx, *curr.CauseID)
		if err != nil {
			return nil, err
		}
		if cause == nil || seen[cause.ID] {
			break
		}
		ancestry = append(ancestry, cause)
		seen[cause.ID] = true
		curr = cause
	}

	// Collected effect-to-root; the narrative reads root-first.
	for i, j := 0, len(ancestry)-1; i < j; i, j = i+1, j-1 {
		ancestry[i], ancestry[j] = ancestry[j], ancestry[i]
	}
	return ancestry, nil
}

// descend follows direct effects of target for at most two hops, skipping
// any event already present in the ascent path or a prior hop.
func (r *Reconstructor) descend(ctx context.Context, target *Event, path []*Event) ([]*Event, error) {
	visited := make(map[int64]bool, len(path))
	for _, ev := range path {
		visited[ev.ID] = true
	}

	var consequences []*Event
	frontier := target
	for hop := 0; hop < 2; hop++ {
		child, err := r.store.DirectEffectOf(ctx, frontier.ID)
		if err != nil {
			return nil, err
		}
		if child == nil || visited[child.ID] {
			break
		}
		consequences = append(consequences, child)
		visited[child.ID] = true
		frontier = child
	}
	return consequences, nil
}

// formatNarrative renders an ordered causal chain as prose:
//
//	Initially, <root>. This led to <next> (<relationship>),
//	which in turn caused <next> (<relationship>).
//
// The parenthetical is omitted for events without relationship text.
func formatNarrative(chain []*Event) string {
	if len(chain) == 0 {
		return "No causal chain found."
	}

	narrative := fmt.Sprintf("Initially, %s.", chain[0].EffectText)
	if len(chain) == 1 {
		return narrative
	}

	clauses := make([]string, 0, len(chain)-1)
	for i := 1; i < len(chain); i++ {
		ev := chain[i]
		relationship := ""
		if ev.RelationshipText != "" {
			relationship = fmt.Sprintf(" (%s)", ev.RelationshipText)
		}
		if i == 1 {
			clauses = append(clauses, fmt.Sprintf("This led to %s%s", ev.EffectText, relationship))
		} else {
			clauses = append(clauses, fmt.Sprintf("which in turn caused %s%s", ev.EffectText, relationship))
		}
	}
	return narrative + " " + strings.Join(clauses, ", ") + "."
}
