package embedder

import (
	"math"
	"strings"
	"testing"
)

func TestValidateEmbedding(t *testing.T) {
	tests := []struct {
		name      string
		vector    []float64
		wantDims  int
		wantValid bool
		wantIssue string
	}{
		{
			name:      "valid vector",
			vector:    []float64{0.5, 0.5, 0.5},
			wantDims:  3,
			wantValid: true,
		},
		{
			name:      "empty vector",
			vector:    nil,
			wantDims:  3,
			wantIssue: "missing or empty",
		},
		{
			name:      "wrong dimensions",
			vector:    []float64{0.1, 0.2},
			wantDims:  3,
			wantIssue: "expected 3 dimensions",
		},
		{
			name:      "NaN element",
			vector:    []float64{math.NaN(), 0.1, 0.2},
			wantDims:  3,
			wantIssue: "non-finite value",
		},
		{
			name:      "infinite element",
			vector:    []float64{0.1, math.Inf(1), 0.2},
			wantDims:  3,
			wantIssue: "non-finite value",
		},
		{
			name:      "zero magnitude",
			vector:    []float64{0, 0, 0},
			wantDims:  3,
			wantIssue: "zero magnitude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateEmbedding(tt.vector, tt.wantDims)
			if res.Valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v (issues: %v)", res.Valid, tt.wantValid, res.Issues)
			}
			if tt.wantIssue != "" {
				found := false
				for _, issue := range res.Issues {
					if strings.Contains(issue, tt.wantIssue) {
						found = true
					}
				}
				if !found {
					t.Errorf("expected issue containing %q, got %v", tt.wantIssue, res.Issues)
				}
			}
		})
	}
}

func TestValidateEmbeddingMagnitude(t *testing.T) {
	res := ValidateEmbedding([]float64{0.5, 0.5}, 2)
	want := math.Sqrt(0.5)
	if math.Abs(res.Magnitude-want) > 1e-9 {
		t.Errorf("expected magnitude %v, got %v", want, res.Magnitude)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", res.Warnings)
	}
}

func TestValidateEmbeddingWarnsOutsideBand(t *testing.T) {
	res := ValidateEmbedding([]float64{100, 100, 100}, 3)
	if !res.Valid {
		t.Fatal("out-of-band magnitude should warn, not fail")
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a magnitude warning")
	}

	res = ValidateEmbedding([]float64{1e-4, 1e-4}, 2)
	if !res.Valid || len(res.Warnings) == 0 {
		t.Error("expected a warning for tiny magnitude")
	}
}
