package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/intelligencedev/ragserve/internal/domain"
)

var citationPattern = regexp.MustCompile(`\[Source (\d+)\]`)

// CitationExtractor finds every "[Source N]" marker in generated answer
// text, with N >= 1, and returns the distinct indices referenced.
type CitationExtractor struct{}

func (CitationExtractor) ExtractCitations(answerText string) []int {
	if answerText == "" {
		return nil
	}
	seen := make(map[int]struct{})
	var indices []int
	for _, match := range citationPattern.FindAllStringSubmatch(answerText, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n <= 0 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		indices = append(indices, n)
	}
	sort.Ints(indices)
	return indices
}

// CitationValidator cross-references extracted citation indices against the
// prompt's citation map, producing validated entries and warnings for any
// index the answer invented.
type CitationValidator struct{}

func previewOf(content string, maxChars int) string {
	r := []rune(content)
	if len(r) <= maxChars {
		return string(r)
	}
	return string(r[:maxChars])
}

func (CitationValidator) Validate(extractedIndices []int, citationMap map[int]domain.Citation, retrievedChunks []domain.RetrievedChunk) ([]domain.CitationEntry, []string) {
	chunkByID := make(map[domain.ID]domain.RetrievedChunk, len(retrievedChunks))
	for _, c := range retrievedChunks {
		chunkByID[c.ChunkID] = c
	}

	var citations []domain.CitationEntry
	var warnings []string

	for _, index := range extractedIndices {
		meta, ok := citationMap[index]
		if !ok {
			warnings = append(warnings, "Missing citation for [Source "+strconv.Itoa(index)+"]")
			continue
		}

		preview := meta.Preview
		if preview == "" {
			if chunk, ok := chunkByID[meta.ChunkID]; ok {
				preview = previewOf(chunk.Content, 150)
			}
		}

		citations = append(citations, domain.CitationEntry{
			Index:           index,
			ChunkID:         meta.ChunkID,
			DocumentID:      meta.DocumentID,
			SourceFile:      meta.SourceFile,
			Page:            meta.Page,
			SimilarityScore: meta.SimilarityScore,
			Preview:         preview,
		})
	}

	return citations, warnings
}

// AnswerProcessor post-processes raw LLM text into an answer, validated
// citations, the distinct chunks referenced, and any citation warnings.
type AnswerProcessor struct {
	extractor CitationExtractor
	validator CitationValidator
}

func NewAnswerProcessor() *AnswerProcessor {
	return &AnswerProcessor{}
}

func (p *AnswerProcessor) Process(llmResponse string, citationMap map[int]domain.Citation, retrievedChunks []domain.RetrievedChunk) (string, []domain.CitationEntry, []domain.UsedChunk, []string) {
	answerText := strings.TrimSpace(llmResponse)

	extracted := p.extractor.ExtractCitations(answerText)
	citations, warnings := p.validator.Validate(extracted, citationMap, retrievedChunks)

	chunkByID := make(map[domain.ID]domain.RetrievedChunk, len(retrievedChunks))
	for _, c := range retrievedChunks {
		chunkByID[c.ChunkID] = c
	}

	var indices []int
	for index := range citationMap {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	var usedChunks []domain.UsedChunk
	seen := make(map[domain.ID]struct{})
	for _, index := range indices {
		meta := citationMap[index]
		if _, ok := seen[meta.ChunkID]; ok {
			continue
		}
		seen[meta.ChunkID] = struct{}{}

		if chunk, ok := chunkByID[meta.ChunkID]; ok {
			usedChunks = append(usedChunks, domain.UsedChunk{
				ChunkID:         chunk.ChunkID,
				Rank:            chunk.Rank,
				SimilarityScore: chunk.SimilarityScore,
				Preview:         previewOf(chunk.Content, 100),
			})
		} else {
			usedChunks = append(usedChunks, domain.UsedChunk{
				ChunkID:         meta.ChunkID,
				SimilarityScore: meta.SimilarityScore,
			})
		}
	}

	return answerText, citations, usedChunks, warnings
}
