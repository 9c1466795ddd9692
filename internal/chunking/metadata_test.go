package chunking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQualityScoreBands(t *testing.T) {
	require.Zero(t, QualityScore(0))
	require.Zero(t, QualityScore(-5))

	require.InDelta(t, 0.1, QualityScore(1), 0.01)
	require.InDelta(t, 0.5, QualityScore(150), 0.01)
	require.InDelta(t, 1.0, QualityScore(300), 1e-9)

	require.InDelta(t, 1.0, QualityScore(500), 1e-9)
	require.InDelta(t, 1.0, QualityScore(800), 1e-9)

	require.InDelta(t, 0.5, QualityScore(1200), 0.01)
	require.InDelta(t, 0.0, QualityScore(1600), 1e-9)
	require.Zero(t, QualityScore(2000))
}

func TestApproximateTokenCount(t *testing.T) {
	require.Equal(t, 13, approximateTokenCount(10))
	require.Equal(t, 0, approximateTokenCount(0))
}
