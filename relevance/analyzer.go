// Package relevance scores and ranks historical conversational context
// against a current directive using lexical overlap decayed by age.
// Unlike the causal engine it needs no embedding capability: scoring is
// pure token arithmetic, cheap enough to run on every request.
package relevance

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

// HistoryEntry is a past conversation as seen by the filter: the
// directive it pursued and when it started.
type HistoryEntry struct {
	ConversationID string
	Directive      string
	CreatedAt      time.Time
	Summary        string
}

// ScoredEntry is a history entry that cleared the relevance threshold.
type ScoredEntry struct {
	HistoryEntry
	Score float64
}

// Turn is a single contribution to a conversation, attributed to an
// agent.
type Turn struct {
	Agent   string
	Content string
}

// Config holds the analyzer tunables.
type Config struct {
	// Threshold is the minimum relevance score for an entry to be kept
	// by Filter. Default: 0.7
	Threshold float64

	// MaxAge is the age at which an entry's score decays to zero.
	// Default: 24h
	MaxAge time.Duration

	// TopicLimit caps how many topics ExtractTopics returns. Default: 10
	TopicLimit int

	// Logger receives analysis diagnostics.
	Logger *log.Logger
}

// DefaultConfig mirrors the deployment defaults.
var DefaultConfig = &Config{
	Threshold:  0.7,
	MaxAge:     24 * time.Hour,
	TopicLimit: 10,
}

// Analyzer extracts topics from text and ranks history entries by
// relevance to a current directive.
type Analyzer struct {
	config *Config
	logger *log.Logger
	now    func() time.Time
}

// NewAnalyzer creates an Analyzer; a nil config uses DefaultConfig.
func NewAnalyzer(config *Config) *Analyzer {
	cfg := *DefaultConfig
	if config != nil {
		cfg = *config
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultConfig.Threshold
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultConfig.MaxAge
	}
	if cfg.TopicLimit == 0 {
		cfg.TopicLimit = DefaultConfig.TopicLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("relevance")
	}
	return &Analyzer{
		config: &cfg,
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// ExtractTopics tokenizes text into lowercase alphabetic runs of three
// or more letters, drops stop words, and returns the most frequent
// tokens, most frequent first. Frequency ties break by first appearance.
func (a *Analyzer) ExtractTopics(text string) []string {
	if text == "" {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if stopWords[word] {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > a.config.TopicLimit {
		order = order[:a.config.TopicLimit]
	}
	return order
}

// Score rates entry's relevance to the current directive in [0, 1]:
// Jaccard similarity of the stop-word-filtered token sets, multiplied by
// a linear time decay that reaches zero at MaxAge.
func (a *Analyzer) Score(currentDirective string, entry HistoryEntry) float64 {
	current := tokenSet(currentDirective)
	historical := tokenSet(entry.Directive)
	if len(current) == 0 && len(historical) == 0 {
		return 0
	}

	intersection := 0
	for word := range current {
		if historical[word] {
			intersection++
		}
	}
	union := len(current) + len(historical) - intersection
	if union == 0 {
		return 0
	}
	similarity := float64(intersection) / float64(union)

	ageHours := a.now().Sub(entry.CreatedAt).Hours()
	decay := 1 - ageHours/a.config.MaxAge.Hours()
	if decay < 0 {
		decay = 0
	}

	return similarity * decay
}

// Filter keeps the entries scoring at or above the threshold, attaches
// their scores, and sorts descending by score.
func (a *Analyzer) Filter(currentDirective string, entries []HistoryEntry) []ScoredEntry {
	var kept []ScoredEntry
	for _, entry := range entries {
		score := a.Score(currentDirective, entry)
		if score >= a.config.Threshold {
			kept = append(kept, ScoredEntry{HistoryEntry: entry, Score: score})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	a.logger.Debug("filtered history", "in", len(entries), "kept", len(kept))
	return kept
}

// Threshold returns the minimum score Filter requires.
func (a *Analyzer) Threshold() float64 {
	return a.config.Threshold
}

// Summarize renders a conversation sequence as one line of per-agent
// topics: turns are grouped by agent (in order of first appearance),
// each agent's contributions are concatenated and topic-extracted, and
// the top five topics per agent are joined as "Agent: t1, t2; Agent2: …".
func (a *Analyzer) Summarize(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}

	contributions := make(map[string][]string)
	var agents []string
	for _, turn := range turns {
		agent := turn.Agent
		if agent == "" {
			agent = "unknown"
		}
		if _, seen := contributions[agent]; !seen {
			agents = append(agents, agent)
		}
		contributions[agent] = append(contributions[agent], turn.Content)
	}

	var parts []string
	for _, agent := range agents {
		topics := a.ExtractTopics(strings.Join(contributions[agent], " "))
		if len(topics) > 5 {
			topics = topics[:5]
		}
		if len(topics) == 0 {
			continue
		}
		parts = append(parts, titleCase(agent)+": "+strings.Join(topics, ", "))
	}
	return strings.Join(parts, "; ")
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if !stopWords[word] {
			set[word] = true
		}
	}
	return set
}
