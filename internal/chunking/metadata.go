package chunking

import (
	"math"
	"strings"

	"github.com/intelligencedev/ragserve/internal/domain"
)

// qualityIdealMin and qualityIdealMax bound the token range that scores 1.0;
// below qualityIdealMin the score ramps up linearly (floored at 0.1), above
// qualityIdealMax it decays linearly to 0 at 2*qualityIdealMax.
const (
	qualityIdealMin = 300
	qualityIdealMax = 800
)

// QualityScore scores a chunk by its approximate token count: small chunks
// lack context, oversized ones dilute retrieval relevance.
func QualityScore(tokenCount int) float64 {
	if tokenCount <= 0 {
		return 0
	}
	if tokenCount <= qualityIdealMin {
		return math.Max(0.1, float64(tokenCount)/float64(qualityIdealMin))
	}
	if tokenCount <= qualityIdealMax {
		return 1.0
	}
	decayRange := float64(qualityIdealMax)
	excess := float64(tokenCount - qualityIdealMax)
	return math.Max(0.0, 1.0-excess/decayRange)
}

// approximateTokenCount is the word-count-based token estimate used across
// the pipeline ahead of a real tokenizer call.
func approximateTokenCount(wordCount int) int {
	return int(math.Round(float64(wordCount) * 1.3))
}

func newChunk(documentID domain.ID, content string, meta domain.ChunkMetadata) domain.Chunk {
	wordCount := len(strings.Fields(content))
	charCount := len([]rune(content))
	tokenCount := approximateTokenCount(wordCount)

	return domain.Chunk{
		ChunkID:         domain.NewID(),
		DocumentID:      documentID,
		Content:         content,
		OriginalContent: content,
		Metadata:        meta,
		TokenCount:      tokenCount,
		WordCount:       wordCount,
		CharCount:       charCount,
		QualityScore:    QualityScore(tokenCount),
	}
}
