package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGoogleClientGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "paris"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 2, "totalTokenCount": 12}
		}`))
	}))
	t.Cleanup(srv.Close)

	client, err := newGoogleClient(context.Background(), "test-key", "test-model", srv.URL, srv.Client())
	require.NoError(t, err)

	result, err := client.Generate(context.Background(), Request{
		SystemMessage: "answer briefly",
		UserMessage:   "what is the capital of france?",
		MaxTokens:     64,
	})
	require.NoError(t, err)
	require.Equal(t, "paris", result.Content)
	require.Equal(t, "test-model", result.Model)
	require.Equal(t, 10, result.PromptTokens)
	require.Equal(t, 2, result.CompletionTokens)
	require.Equal(t, 12, result.TotalTokens)
}

func TestGoogleClientGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	t.Cleanup(srv.Close)

	client, err := newGoogleClient(context.Background(), "test-key", "test-model", srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{SystemMessage: "s", UserMessage: "u"})
	require.Error(t, err)
}
