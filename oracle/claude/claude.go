// Package claude implements the causality oracle on the Anthropic
// Messages API. Each judgment asks the model whether one event directly
// led to another and expects either a one-sentence explanation or "No."
//
// Judgments are cached in a TTL cache keyed by the (cause, effect) pair,
// so repeated linking passes over the same events do not re-bill the API.
package claude

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/charmbracelet/log"
	"github.com/dgraph-io/ristretto"

	"github.com/threadline-ai/causalmem/oracle"
)

const judgmentPrompt = `Based on the preceding event: %q, did it directly lead to the following event: %q?

If yes, briefly explain the causal relationship in one sentence. If no, respond with "No."`

// Config configures the Claude judge.
type Config struct {
	// Model is the Claude model used for judgments.
	// Default: claude-sonnet-4-20250514
	Model string

	// MaxTokens bounds the judgment response. Default: 100
	MaxTokens int64

	// Temperature for the judgment call. Default: 0.7
	Temperature float64

	// Timeout bounds each API call. Default: 30s
	Timeout time.Duration

	// CacheSize is the maximum number of cached judgments. Default: 500
	CacheSize int64

	// CacheTTL is how long a judgment stays cached. Default: 1h
	CacheTTL time.Duration

	// Logger receives judgment diagnostics.
	Logger *log.Logger
}

// Judge asks Claude whether one event caused another.
type Judge struct {
	client *anthropic.Client
	cache  *ristretto.Cache
	config Config
	logger *log.Logger
}

// New creates a Judge over an existing Anthropic client. The client is
// injected so one instance can be shared across components.
func New(client *anthropic.Client, cfg Config) (*Judge, error) {
	if client == nil {
		return nil, fmt.Errorf("anthropic client is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 100
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 500
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("oracle.claude")
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.CacheSize * 10,
		MaxCost:     cfg.CacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create judgment cache: %w", err)
	}

	return &Judge{
		client: client,
		cache:  cache,
		config: cfg,
		logger: cfg.Logger,
	}, nil
}

// Judge returns the model's one-sentence causal explanation, or "" when
// the model answers "No." API failures are reported as
// oracle.ErrUnavailable; the linker treats them as "no relationship".
func (j *Judge) Judge(ctx context.Context, causeText, effectText string) (string, error) {
	key := j.cacheKey(causeText, effectText)
	if cached, ok := j.cache.Get(key); ok {
		return cached.(string), nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	prompt := fmt.Sprintf(judgmentPrompt, causeText, effectText)
	resp, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(j.config.Model),
		MaxTokens:   j.config.MaxTokens,
		Temperature: anthropic.Float(j.config.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		j.logger.Warn("judgment call failed", "err", err)
		return "", fmt.Errorf("%w: %v", oracle.ErrUnavailable, err)
	}

	relationship := parseJudgment(resp)
	// Negative judgments are cached too; re-asking would give the same
	// answer at the same cost.
	j.cache.SetWithTTL(key, relationship, 1, j.config.CacheTTL)
	return relationship, nil
}

// Close releases the judgment cache.
func (j *Judge) Close() {
	j.cache.Close()
}

func (j *Judge) cacheKey(causeText, effectText string) string {
	h := sha256.New()
	h.Write([]byte(j.config.Model))
	h.Write([]byte{0})
	h.Write([]byte(causeText))
	h.Write([]byte{0})
	h.Write([]byte(effectText))
	return hex.EncodeToString(h.Sum(nil))
}

// parseJudgment extracts the relationship text from a response. Any
// answer starting with "no" counts as "no relationship".
func parseJudgment(resp *anthropic.Message) string {
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	text = strings.TrimSpace(text)

	if strings.HasPrefix(strings.ToLower(text), "no") {
		return ""
	}
	return text
}
