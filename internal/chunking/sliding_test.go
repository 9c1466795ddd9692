package chunking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlidingWindowChunkerOverlap(t *testing.T) {
	text := "0123456789"
	segments, err := SlidingWindowChunker{}.Chunk(text, 4, 2)
	require.NoError(t, err)
	require.NotEmpty(t, segments)

	require.Equal(t, "0123", segments[0].Content)
	require.Equal(t, 0, segments[0].Start)
	require.Equal(t, 4, segments[0].End)
	require.Equal(t, "2345", segments[1].Content)
}

func TestSlidingWindowChunkerRejectsBadOverlap(t *testing.T) {
	_, err := SlidingWindowChunker{}.Chunk("abc", 4, 4)
	require.Error(t, err)

	_, err = SlidingWindowChunker{}.Chunk("abc", 4, -1)
	require.Error(t, err)
}

func TestSlidingWindowChunkerSkipsBlankSegments(t *testing.T) {
	segments, err := SlidingWindowChunker{}.Chunk("  ", 4, 0)
	require.NoError(t, err)
	require.Empty(t, segments)
}

func TestSlidingWindowChunkerEmptyInput(t *testing.T) {
	segments, err := SlidingWindowChunker{}.Chunk("", 10, 0)
	require.NoError(t, err)
	require.Empty(t, segments)
}
