package causal_test

import (
	"math"
	"testing"

	"github.com/threadline-ai/causalmem/causal"
)

func TestCosineSimilarity_Identical(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8}

	sim, ok := causal.CosineSimilarity(v, v)
	if !ok {
		t.Fatal("Expected similarity to be defined for identical vectors")
	}
	if math.Abs(sim-1.0) > 1e-6 {
		t.Errorf("Expected similarity 1.0 for identical vectors, got %f", sim)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	sim, ok := causal.CosineSimilarity(a, b)
	if !ok {
		t.Fatal("Expected similarity to be defined")
	}
	if math.Abs(sim) > 1e-6 {
		t.Errorf("Expected similarity 0 for orthogonal vectors, got %f", sim)
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.2, 0.7, -0.1}
	b := []float32{-0.4, 0.5, 0.9}

	ab, _ := causal.CosineSimilarity(a, b)
	ba, _ := causal.CosineSimilarity(b, a)
	if ab != ba {
		t.Errorf("Expected symmetric similarity, got %f and %f", ab, ba)
	}
}

func TestCosineSimilarity_ZeroNorm(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}

	if _, ok := causal.CosineSimilarity(a, b); ok {
		t.Error("Expected similarity to be undefined for a zero-norm vector")
	}
	if _, ok := causal.CosineSimilarity(b, a); ok {
		t.Error("Expected similarity to be undefined when either vector has zero norm")
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0, 0}

	if _, ok := causal.CosineSimilarity(a, b); ok {
		t.Error("Expected similarity to be undefined for mismatched dimensions")
	}
	if _, ok := causal.CosineSimilarity(nil, nil); ok {
		t.Error("Expected similarity to be undefined for empty vectors")
	}
}
