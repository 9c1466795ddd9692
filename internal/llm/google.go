package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// GoogleClient is the third generation provider: same Client contract as
// OpenAIClient and AnthropicClient, built on the same genai.Client the
// teacher's chat-oriented Google backend wraps, narrowed here to one-shot
// system+user generation.
type GoogleClient struct {
	client *genai.Client
	model  string
}

func NewGoogleClient(ctx context.Context, apiKey, model string) (*GoogleClient, error) {
	return newGoogleClient(ctx, apiKey, model, "", nil)
}

// newGoogleClient takes an optional baseURL/httpClient override so tests can
// point the client at an httptest server, the same override path the
// teacher's google client exposes via its HTTPOptions.
func newGoogleClient(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client) (*GoogleClient, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	cfg := &genai.ClientConfig{APIKey: strings.TrimSpace(apiKey)}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSuffix(baseURL, "/") + "/"}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}
	return &GoogleClient{client: client, model: model}, nil
}

func (c *GoogleClient) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	contents := []*genai.Content{
		genai.NewContentFromText(req.UserMessage, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemMessage, genai.RoleUser),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, classifyGoogleError(err)
	}

	content, finishReason, err := textFromResponse(resp)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Content:      content,
		Model:        c.model,
		FinishReason: finishReason,
		LatencyMS:    float64(time.Since(start).Milliseconds()),
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", "", &ProviderError{Err: errors.New("google: no candidates in response")}
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", "", &ProviderError{Err: errors.New("google: empty content in response")}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", "", &ProviderError{Err: errors.New("google: empty text in response")}
	}
	return sb.String(), string(candidate.FinishReason), nil
}

func classifyGoogleError(err error) error {
	var apiErr genai.APIError
	status := 0
	if errors.As(err, &apiErr) {
		status = apiErr.Code
	}
	return &ProviderError{StatusCode: status, Err: err}
}
