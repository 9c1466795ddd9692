package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider is the low-level embedding call: one HTTP round trip (or
// equivalent) per batch of texts, returning one vector per input text in
// order.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ProviderError wraps a provider failure with the HTTP status it carried,
// when known, so retry classification doesn't need to inspect arbitrary
// error types.
type ProviderError struct {
	StatusCode int // 0 when not an HTTP error
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding provider error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("embedding provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrNonRetryable marks a provider failure that retrying cannot fix (bad
// request shape, auth failure client-side validation, etc).
var ErrNonRetryable = errors.New("embedding: non-retryable provider error")

// isRetryableError decides whether embedWithRetries should try again:
// explicit non-retryable errors and 4xx other than 429 are terminal;
// 429/5xx and anything else (assume transient network/SDK noise) retry.
func isRetryableError(err error) bool {
	if errors.Is(err, ErrNonRetryable) {
		return false
	}
	var perr *ProviderError
	if errors.As(err, &perr) && perr.StatusCode != 0 {
		switch perr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		default:
			if perr.StatusCode >= 400 && perr.StatusCode < 500 {
				return false
			}
			return true
		}
	}
	return true
}
