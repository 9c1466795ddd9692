package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateEmbeddingValidVector(t *testing.T) {
	q := ValidateEmbedding([]float32{3, 4}, 2)
	require.True(t, q.IsValid)
	require.Empty(t, q.Issues)
	require.InDelta(t, 5.0, q.Norm, 1e-9)
	require.InDelta(t, 5.0, q.QualityScore, 1e-9)
}

func TestValidateEmbeddingDimensionMismatch(t *testing.T) {
	q := ValidateEmbedding([]float32{1, 2, 3}, 4)
	require.False(t, q.IsValid)
	require.Zero(t, q.QualityScore)
	require.Contains(t, q.Issues, "dimension mismatch")
}

func TestValidateEmbeddingRejectsNonFiniteComponents(t *testing.T) {
	q := ValidateEmbedding([]float32{1, float32(math.NaN()), 3}, 3)
	require.False(t, q.IsValid)
	require.Zero(t, q.QualityScore)
}

func TestValidateEmbeddingEmptyVector(t *testing.T) {
	q := ValidateEmbedding(nil, 0)
	require.True(t, q.IsValid)
	require.Zero(t, q.Norm)
}
