package query

import (
	"regexp"
	"strings"

	"github.com/intelligencedev/ragserve/internal/apierr"
)

const (
	queryMinChars = 1
	queryMaxChars = 5000
	topKMin       = 1
	topKMax       = 100
)

// Request is the validated shape of one incoming query.
type Request struct {
	Query          string
	TopK           int
	Filters        map[string]string
	IncludeSources bool
}

// ValidateRequest checks length, whitespace, forbidden-pattern, and top_k
// bounds, raising a validation-kind apierr.Error naming the offending field.
func ValidateRequest(req Request, forbidden []*regexp.Regexp) error {
	trimmed := strings.TrimSpace(req.Query)
	if trimmed == "" {
		return apierr.New(apierr.KindValidation, "query must not be empty").WithField("query")
	}
	if n := len([]rune(req.Query)); n < queryMinChars || n > queryMaxChars {
		return apierr.New(apierr.KindValidation, "query length must be between 1 and 5000 characters").WithField("query")
	}
	for _, pattern := range forbidden {
		if pattern.MatchString(req.Query) {
			return apierr.New(apierr.KindValidation, "query matches a forbidden pattern").WithField("query")
		}
	}
	if req.TopK < topKMin || req.TopK > topKMax {
		return apierr.New(apierr.KindValidation, "top_k must be between 1 and 100").WithField("top_k")
	}
	return nil
}
