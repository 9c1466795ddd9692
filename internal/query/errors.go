package query

import (
	"errors"
	"net/http"

	"github.com/intelligencedev/ragserve/internal/apierr"
	"github.com/intelligencedev/ragserve/internal/embedding"
	"github.com/intelligencedev/ragserve/internal/llm"
)

// MapGenerationError converts a provider-stage failure (embedding,
// retrieval, or generation) into the apierr.Error taxonomy the HTTP
// boundary renders. TimeoutError and validation apierr.Errors are expected
// to be handled before this is called; everything else funnels through
// provider-status classification.
func MapGenerationError(err error) *apierr.Error {
	if existing, ok := apierr.As(err); ok {
		return existing
	}

	if status, ok := providerStatusCode(err); ok {
		return classifyByStatus(status, err)
	}

	return apierr.Wrap(apierr.KindProviderError,
		"the upstream provider is temporarily unavailable; please try again later", err)
}

func providerStatusCode(err error) (int, bool) {
	var lerr *llm.ProviderError
	if errors.As(err, &lerr) && lerr.StatusCode != 0 {
		return lerr.StatusCode, true
	}
	var eerr *embedding.ProviderError
	if errors.As(err, &eerr) && eerr.StatusCode != 0 {
		return eerr.StatusCode, true
	}
	return 0, false
}

func classifyByStatus(status int, err error) *apierr.Error {
	switch {
	case status == http.StatusTooManyRequests:
		return apierr.Wrap(apierr.KindRateLimit,
			"the upstream provider is temporarily unavailable due to rate limiting; please try again shortly", err)
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return apierr.Wrap(apierr.KindServiceUnavailable,
			"the upstream provider is temporarily unavailable; please try again later", err)
	case status >= 400 && status < 500:
		return apierr.Wrap(apierr.KindBadRequest,
			"your request could not be processed; please check the query and try again", err)
	default:
		return apierr.Wrap(apierr.KindProviderError,
			"the upstream provider is temporarily unavailable; please try again later", err)
	}
}
