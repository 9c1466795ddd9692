package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecursiveChunkerSplitsOnParagraphsFirst(t *testing.T) {
	text := "first paragraph here.\n\nsecond paragraph here."
	segments, err := RecursiveChunker{}.Chunk(text, 2000, []string{"\n\n", "\n", ".", " "}, false)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	require.Equal(t, "first paragraph here.", segments[0].Content)
	require.Equal(t, "second paragraph here.", segments[1].Content)
}

func TestRecursiveChunkerFallsBackToWordsWhenOversized(t *testing.T) {
	text := strings.Repeat("word ", 50)
	segments, err := RecursiveChunker{}.Chunk(text, 20, []string{"\n\n", "\n", ".", " "}, false)
	require.NoError(t, err)
	require.NotEmpty(t, segments)
	for _, seg := range segments {
		require.LessOrEqual(t, len([]rune(seg.Content)), 20)
	}
}

func TestRecursiveChunkerKeepsSentencePunctuation(t *testing.T) {
	text := "one sentence here. two sentence here."
	segments, err := RecursiveChunker{}.Chunk(text, 2000, []string{"\n\n", "\n", ".", " "}, false)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	require.True(t, strings.HasSuffix(segments[0].Content, "."))
}

func TestRecursiveChunkerRejectsZeroChunkSize(t *testing.T) {
	_, err := RecursiveChunker{}.Chunk("text", 0, nil, false)
	require.Error(t, err)
}

func TestRecursiveChunkerEmptyInput(t *testing.T) {
	segments, err := RecursiveChunker{}.Chunk("", 100, nil, false)
	require.NoError(t, err)
	require.Empty(t, segments)
}
