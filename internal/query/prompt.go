package query

import (
	"time"

	"github.com/intelligencedev/ragserve/internal/domain"
)

const systemPrompt = "You are a helpful, accurate, and concise assistant.\n\n" +
	"When answering:\n" +
	"1. Use ONLY the provided context to form your answer.\n" +
	"2. Cite your sources using [Source N] markers.\n" +
	"3. If the context does not contain the answer, say so explicitly.\n" +
	"4. Be precise and avoid generalizations."

const noContextNotice = "---RETRIEVED CONTEXT---\n" +
	"No relevant context was retrieved. Answer based on general knowledge only if appropriate.\n"

// PromptAssembler composes the system/user messages sent to the LLM from a
// query and its retrieved chunks, enforcing the model's token budget.
type PromptAssembler struct {
	counter   TokenCounter
	budget    TokenBudgetAllocator
	formatter CitationFormatter
	assembler ContextAssembler
}

func NewPromptAssembler() *PromptAssembler {
	return &PromptAssembler{}
}

// ConstructPrompt builds a domain.PromptResponse for one query given its
// retrieved chunks, model, and response token reservation.
func (a *PromptAssembler) ConstructPrompt(queryText string, chunks []domain.RetrievedChunk, model string, responseBudget int) (domain.PromptResponse, []domain.RetrievedChunk, error) {
	start := time.Now()

	systemTokens := a.counter.Count(systemPrompt)
	queryTokens := a.counter.Count(queryText)

	budget, err := a.budget.Allocate(model, systemTokens, queryTokens, 0, 0, responseBudget)
	if err != nil {
		return domain.PromptResponse{}, nil, err
	}

	contextStr, usedIndices, usedChunks, metrics := a.assembler.Assemble(chunks, budget.AvailableForContext, a.counter, a.formatter)

	citationMap := a.formatter.BuildCitationMap(usedChunks, usedIndices)

	var contextSection string
	if contextStr != "" {
		contextSection = "---RETRIEVED CONTEXT---\n" + contextStr + "\n"
	} else {
		contextSection = noContextNotice
	}
	userMessage := contextSection + "\n---USER QUERY---\n" + queryText

	budget.ContextTokens = metrics.contextTokens
	budget.ChunksIncluded = metrics.chunksIncluded
	budget.ChunksTruncated = metrics.chunksTruncated

	return domain.PromptResponse{
		SystemMessage:     systemPrompt,
		UserMessage:       userMessage,
		CitationMap:       citationMap,
		TokenMetrics:      budget,
		AssemblyLatencyMS: float64(time.Since(start).Milliseconds()),
	}, usedChunks, nil
}
