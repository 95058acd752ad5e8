package embedding

import (
	"fmt"
	"math"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// Normalize scales v to unit length in place and returns it.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// FromFloat64 converts a JSON-decoded vector to float32 and normalises it.
func FromFloat64(values []float64) []float32 {
	v := make([]float32, len(values))
	for i, x := range values {
		v[i] = float32(x)
	}
	return Normalize(v)
}

// CheckBatch verifies a provider returned one vector of the expected size per input.
func CheckBatch(vectors [][]float32, inputs, dimensions int) error {
	if len(vectors) != inputs {
		return fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingService, len(vectors), inputs)
	}
	for i, v := range vectors {
		if dimensions > 0 && len(v) != dimensions {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				domain.ErrEmbeddingService, i, len(v), dimensions)
		}
	}
	return nil
}
