package claude

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func message(texts ...string) *anthropic.Message {
	msg := &anthropic.Message{}
	for _, text := range texts {
		msg.Content = append(msg.Content, anthropic.ContentBlockUnion{Type: "text", Text: text})
	}
	return msg
}

func TestParseJudgment(t *testing.T) {
	cases := []struct {
		name string
		resp *anthropic.Message
		want string
	}{
		{"affirmative", message("The deploy triggered the failure."), "The deploy triggered the failure."},
		{"negative", message("No."), ""},
		{"negative lowercase", message("no, these are unrelated"), ""},
		{"whitespace trimmed", message("  Yes, the restart cleared the cache.  "), "Yes, the restart cleared the cache."},
		{"empty", message(), ""},
		{"multi block", message("The migration ", "unblocked the deploy."), "The migration unblocked the deploy."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseJudgment(tc.resp); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCacheKey_Distinguishes(t *testing.T) {
	j := &Judge{config: Config{Model: "claude-sonnet-4-20250514"}}

	ab := j.cacheKey("a", "b")
	ba := j.cacheKey("b", "a")
	if ab == ba {
		t.Error("Expected direction-sensitive cache keys")
	}

	// Concatenation ambiguity must not collide.
	if j.cacheKey("ab", "c") == j.cacheKey("a", "bc") {
		t.Error("Expected boundary-sensitive cache keys")
	}
}
