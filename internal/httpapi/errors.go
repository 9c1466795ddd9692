// Package httpapi is the HTTP transport and routing boundary described in
// section 6: request/multipart handling, the error envelope, and
// dispatch into the ingestion and query orchestrators. It is explicitly
// the thin external-collaborator layer around the core C1-C7 pipelines —
// no pipeline logic lives here.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/intelligencedev/ragserve/internal/apierr"
	"github.com/intelligencedev/ragserve/internal/query"
	"github.com/intelligencedev/ragserve/internal/trace"
)

// errorEnvelope is the global handler's unified error shape from section 7.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	StatusCode int           `json:"status_code"`
	TraceID   string         `json:"trace_id"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// writeError renders err into the unified envelope, always setting
// X-Trace-ID and, for 429s, Retry-After.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := trace.IDFromContext(r.Context())
	w.Header().Set("X-Trace-ID", traceID)

	var timeoutErr *query.TimeoutError
	if errors.As(err, &timeoutErr) {
		writeEnvelope(w, traceID, http.StatusRequestTimeout, "timeout", err.Error(), map[string]any{
			"timeout_seconds":  timeoutErr.TimeoutSeconds,
			"elapsed_ms":       timeoutErr.ElapsedMS,
			"stages_completed": timeoutErr.StagesCompleted,
		})
		return
	}

	if apiErr, ok := apierr.As(err); ok {
		details := apiErr.Details
		if apiErr.Field != "" {
			if details == nil {
				details = map[string]any{}
			}
			details["field"] = apiErr.Field
		}
		if apiErr.Kind == apierr.KindRateLimit {
			if retryAfter, ok := details["retry_after_seconds"]; ok {
				if secs, ok := retryAfter.(float64); ok {
					w.Header().Set("Retry-After", formatSeconds(secs))
				}
			}
		}
		writeEnvelope(w, traceID, apiErr.Status(), string(apiErr.Kind), apiErr.Message, details)
		return
	}

	writeEnvelope(w, traceID, http.StatusInternalServerError, string(apierr.KindInternal), "an unexpected error occurred", nil)
}

func writeEnvelope(w http.ResponseWriter, traceID string, status int, kind, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{
		Type:       kind,
		Message:    message,
		StatusCode: status,
		TraceID:    traceID,
		Timestamp:  time.Now().UTC(),
		Details:    details,
	}})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("X-Trace-ID", trace.IDFromContext(r.Context()))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// formatSeconds renders a Retry-After header value: the spec's
// retry_after_seconds, rounded up to the nearest whole second per RFC 9110.
func formatSeconds(s float64) string {
	secs := int(s)
	if float64(secs) < s {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
