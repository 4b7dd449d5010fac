// Package oracle defines the causality-judgment capability: an external
// judge that decides, given two event texts, whether the first plausibly
// caused the second.
//
// The implementation is chosen once at construction: the claude
// subpackage for a real LLM judge, Disabled for deployments without one.
package oracle

import (
	"context"
	"errors"
)

// ErrUnavailable reports a network, auth, or timeout failure. The linker
// treats it identically to "no relationship" and moves on.
var ErrUnavailable = errors.New("causality oracle unavailable")

// Oracle judges causality between two event descriptions.
type Oracle interface {
	// Judge returns a one-sentence description of the causal relationship
	// from causeText to effectText, or "" when the oracle sees none.
	Judge(ctx context.Context, causeText, effectText string) (string, error)
}

// Disabled is the no-op oracle for deployments without an LLM judge.
// Every judgment is "no relationship", so all events stay root events.
type Disabled struct{}

// Judge always reports no relationship.
func (Disabled) Judge(ctx context.Context, causeText, effectText string) (string, error) {
	return "", nil
}
