package llm

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the alternate generation provider: same Client
// contract as OpenAIClient, so the query orchestrator never branches on
// which LLM vendor is configured.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: req.SystemMessage}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserMessage)),
		},
	})
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	var content string
	for _, block := range message.Content {
		if text := block.Text; text != "" {
			content += text
		}
	}
	if content == "" {
		return nil, &ProviderError{Err: errors.New("anthropic: empty content in message response")}
	}

	return &Result{
		Content:          content,
		Model:            string(message.Model),
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
		TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		FinishReason:     string(message.StopReason),
		LatencyMS:        float64(time.Since(start).Milliseconds()),
	}, nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	status := 0
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return &ProviderError{StatusCode: status, Err: err}
}
