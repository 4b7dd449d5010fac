package causal

import "math"

// CosineSimilarity returns dot(a,b) / (‖a‖·‖b‖) for two embeddings.
// The boolean is false when the vectors differ in dimension or either has
// zero norm; callers skip such candidates instead of dividing by zero.
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0, false
	}
	return dot / denom, true
}
