package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/intelligencedev/ragserve/internal/domain"
)

// CitationFormatter renders one retrieved chunk as a "[Source N] ..." block
// and builds the citation_map keyed by the index actually emitted.
type CitationFormatter struct{}

// FormatChunk returns the chunk rendered with its citation marker and
// source header.
func (CitationFormatter) FormatChunk(chunk domain.RetrievedChunk, citationIndex int) string {
	headerParts := []string{fmt.Sprintf("[Source %d]", citationIndex)}

	sourceFile := chunk.Metadata.SourceFilename
	if sourceFile == "" {
		sourceFile = "unknown"
	}
	headerParts = append(headerParts, "File: "+sourceFile)

	if chunk.Metadata.PageNumber > 0 {
		headerParts = append(headerParts, fmt.Sprintf("Page %d", chunk.Metadata.PageNumber))
	}
	if chunk.Metadata.SectionTitle != "" {
		headerParts = append(headerParts, chunk.Metadata.SectionTitle)
	}

	header := strings.Join(headerParts, ", ")
	return header + "\n" + chunk.Content + "\n"
}

// BuildCitationMap builds {citation index -> Citation} for the chunks that
// survived context assembly, in the order they were cited.
func (CitationFormatter) BuildCitationMap(chunks []domain.RetrievedChunk, usedIndices []int) map[int]domain.Citation {
	out := make(map[int]domain.Citation, len(usedIndices))
	for i, index := range usedIndices {
		if i >= len(chunks) {
			break
		}
		chunk := chunks[i]
		out[index] = domain.Citation{
			ChunkID:         chunk.ChunkID,
			DocumentID:      chunk.DocumentID,
			SourceFile:      chunk.Metadata.SourceFilename,
			Page:            chunk.Metadata.PageNumber,
			SimilarityScore: chunk.SimilarityScore,
		}
	}
	return out
}

// ContextAssembler packs ranked chunks into the available token budget,
// truncating or dropping the chunk that would overflow it.
type ContextAssembler struct{}

type assembleMetrics struct {
	contextTokens   int
	chunksIncluded  int
	chunksTruncated int
}

func (ContextAssembler) Assemble(chunks []domain.RetrievedChunk, availableTokens int, counter TokenCounter, formatter CitationFormatter) (string, []int, []domain.RetrievedChunk, assembleMetrics) {
	if availableTokens <= 0 || len(chunks) == 0 {
		return "", nil, nil, assembleMetrics{}
	}

	sorted := make([]domain.RetrievedChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank < sorted[j].Rank
		}
		return sorted[i].SimilarityScore > sorted[j].SimilarityScore
	})

	remaining := availableTokens
	var parts []string
	var usedIndices []int
	var usedChunks []domain.RetrievedChunk
	chunksTruncated := 0

	for _, chunk := range sorted {
		citationIndex := len(usedIndices) + 1
		formatted := formatter.FormatChunk(chunk, citationIndex)
		tokens := counter.Count(formatted)

		if tokens <= remaining {
			parts = append(parts, formatted)
			usedIndices = append(usedIndices, citationIndex)
			usedChunks = append(usedChunks, chunk)
			remaining -= tokens
			continue
		}

		if remaining > 0 {
			words := strings.Fields(formatted)
			if len(words) == 0 {
				break
			}
			maxWords := remaining - 1
			if maxWords <= 0 {
				maxWords = 1
			}
			if maxWords > len(words) {
				maxWords = len(words)
			}
			truncated := strings.Join(words[:maxWords], " ") + " [...]\n"
			truncatedTokens := counter.Count(truncated)

			if truncatedTokens <= remaining {
				parts = append(parts, truncated)
				usedIndices = append(usedIndices, citationIndex)
				usedChunks = append(usedChunks, chunk)
				remaining -= truncatedTokens
				chunksTruncated++
			}
		}
		break
	}

	contextStr := strings.Join(parts, "")
	contextTokens := 0
	if contextStr != "" {
		contextTokens = counter.Count(contextStr)
	}

	return contextStr, usedIndices, usedChunks, assembleMetrics{
		contextTokens:   contextTokens,
		chunksIncluded:  len(usedChunks),
		chunksTruncated: chunksTruncated,
	}
}
