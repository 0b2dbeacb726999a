package vector

import "math"

// Normalize scales v in place to unit L2 norm. A zero-norm vector is left
// unchanged (the divisor is clamped to 1) so that padding or all-zero
// embeddings never divide by zero.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	inv := float32(1 / norm)
	for i := range v {
		v[i] *= inv
	}
}

// NormalizeBatch normalizes every row of vs in place.
func NormalizeBatch(vs [][]float32) {
	for _, v := range vs {
		Normalize(v)
	}
}
