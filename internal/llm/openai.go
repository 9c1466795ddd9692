package llm

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient generates completions via the OpenAI chat-completions
// endpoint, matching the embedding package's provider-wrapping style.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
}

func NewOpenAIClient(apiKey, model string, temperature float64) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		temperature: temperature,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemMessage),
			openai.UserMessage(req.UserMessage),
		},
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return nil, classifyOpenAIGenerationError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Err: errors.New("openai: empty choices in completion response")}
	}

	choice := resp.Choices[0]
	return &Result{
		Content:          choice.Message.Content,
		Model:            resp.Model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		FinishReason:     string(choice.FinishReason),
		LatencyMS:        float64(time.Since(start).Milliseconds()),
	}, nil
}

func classifyOpenAIGenerationError(err error) error {
	var apiErr *openai.Error
	status := 0
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return &ProviderError{StatusCode: status, Err: err}
}
