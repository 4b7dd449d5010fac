package causal

import (
	"time"

	"github.com/charmbracelet/log"
)

// Config holds the tunables shared by the Linker and the Reconstructor.
type Config struct {
	// SimilarityThreshold is the minimum cosine similarity for an event
	// to count as a cause candidate or a query match [0.0-1.0].
	// Default: 0.5
	SimilarityThreshold float64

	// MaxPotentialCauses caps how many ranked candidates are submitted
	// to the oracle per new event. Default: 5
	MaxPotentialCauses int

	// TimeDecay is the recency window beyond which an event is no longer
	// considered a candidate cause. Default: 24h
	TimeDecay time.Duration

	// CandidateLimit caps the store scan during candidate search.
	// Default: 50
	CandidateLimit int

	// Logger receives linking and reconstruction diagnostics.
	// Defaults to the process logger with a "causal" prefix.
	Logger *log.Logger
}

// DefaultConfig mirrors the deployment defaults.
var DefaultConfig = &Config{
	SimilarityThreshold: 0.5,
	MaxPotentialCauses:  5,
	TimeDecay:           24 * time.Hour,
	CandidateLimit:      50,
}

func (c *Config) withDefaults() *Config {
	out := *DefaultConfig
	if c != nil {
		out = *c
	}
	if out.SimilarityThreshold == 0 {
		out.SimilarityThreshold = DefaultConfig.SimilarityThreshold
	}
	if out.MaxPotentialCauses == 0 {
		out.MaxPotentialCauses = DefaultConfig.MaxPotentialCauses
	}
	if out.TimeDecay == 0 {
		out.TimeDecay = DefaultConfig.TimeDecay
	}
	if out.CandidateLimit == 0 {
		out.CandidateLimit = DefaultConfig.CandidateLimit
	}
	if out.Logger == nil {
		out.Logger = log.Default().WithPrefix("causal")
	}
	return &out
}
