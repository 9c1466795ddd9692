package query

import (
	"strings"

	"github.com/intelligencedev/ragserve/internal/apierr"
	"github.com/intelligencedev/ragserve/internal/domain"
)

// TokenCounter approximates token counts with a whitespace-split heuristic,
// matching the ingestion-side approximation rather than pulling in a
// model-specific tokenizer.
type TokenCounter struct{}

// Count returns at least 1 for any non-empty string, 0 for an empty one.
func (TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len(strings.Fields(text))
	if n < 1 {
		return 1
	}
	return n
}

const defaultContextWindow = 128_000

var contextWindowByModel = map[string]int{
	"gpt-4o":      128_000,
	"gpt-5-nano":  128_000,
	"gpt-4o-mini": 128_000,
}

// TokenBudgetAllocator splits one model's context window between the fixed
// prompt components and the retrieved-context budget.
type TokenBudgetAllocator struct{}

func contextWindowFor(model string) int {
	if w, ok := contextWindowByModel[model]; ok {
		return w
	}
	return defaultContextWindow
}

// Allocate computes domain.TokenMetrics for one prompt; it returns a
// bad-request apierr.Error if the fixed components alone exceed the
// model's context window.
func (TokenBudgetAllocator) Allocate(model string, systemTokens, queryTokens, historyTokens, examplesTokens, responseBudget int) (domain.TokenMetrics, error) {
	window := contextWindowFor(model)
	totalFixed := systemTokens + queryTokens + historyTokens + examplesTokens + responseBudget

	if totalFixed > window {
		return domain.TokenMetrics{}, apierr.New(apierr.KindBadRequest, "token budget exceeds model context window")
	}

	return domain.TokenMetrics{
		SystemPrompt:        systemTokens,
		Query:               queryTokens,
		History:             historyTokens,
		Examples:            examplesTokens,
		ResponseReserved:    responseBudget,
		AvailableForContext: window - totalFixed,
		TotalUsed:           totalFixed,
		ContextWindow:       window,
	}, nil
}
