package embedder

import (
	"fmt"
	"math"

	"github.com/veloce-ai/veloce/pkg/models"
)

// Plausible Euclidean magnitude band for embedding vectors. Magnitudes
// outside it are a sanity signal, not a hard failure: typical models land
// around 0.1-2.0 but the range varies by model.
const (
	magnitudeMin = 0.01
	magnitudeMax = 10.0
)

// ValidateEmbedding checks that a vector is usable: present, of the
// expected length, all elements finite, and with nonzero magnitude. The
// computed magnitude is returned for diagnostic logging.
func ValidateEmbedding(vector []float64, wantDims int) models.ValidationResult {
	res := models.ValidationResult{}

	if len(vector) == 0 {
		res.Issues = append(res.Issues, "embedding vector is missing or empty")
		return res
	}
	if wantDims > 0 && len(vector) != wantDims {
		res.Issues = append(res.Issues, fmt.Sprintf("expected %d dimensions, got %d", wantDims, len(vector)))
	}

	sumSquares := 0.0
	for i, v := range vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			res.Issues = append(res.Issues, fmt.Sprintf("non-finite value %v at index %d", v, i))
			continue
		}
		sumSquares += v * v
	}
	res.Magnitude = math.Sqrt(sumSquares)

	if len(res.Issues) == 0 && res.Magnitude == 0 {
		res.Issues = append(res.Issues, "embedding has zero magnitude")
	}

	res.Valid = len(res.Issues) == 0
	if res.Valid && (res.Magnitude < magnitudeMin || res.Magnitude > magnitudeMax) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("magnitude %.4f outside expected range [%g, %g]", res.Magnitude, magnitudeMin, magnitudeMax))
	}
	return res
}
