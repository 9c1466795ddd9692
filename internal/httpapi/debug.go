package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/intelligencedev/ragserve/internal/apierr"
	"github.com/intelligencedev/ragserve/internal/debugstore"
)

type artifactView struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

type debugArtifactsResponse struct {
	TraceID   string         `json:"trace_id"`
	Artifacts []artifactView `json:"artifacts"`
}

// debugHandler answers GET /api/debug/artifacts?trace_id=..., per section
// 4.7's environment/token authorization rule.
type debugHandler struct {
	artifacts *debugstore.Logger
}

func (h *debugHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traceID := r.URL.Query().Get("trace_id")
	if traceID == "" {
		writeError(w, r, apierr.New(apierr.KindBadRequest, "trace_id query parameter is required"))
		return
	}

	token := bearerToken(r)
	items, err := h.artifacts.Fetch(r.Context(), traceID, token)
	if err != nil {
		switch {
		case errors.Is(err, debugstore.ErrDebugDisabled):
			writeError(w, r, apierr.New(apierr.KindNotFound, "debug artifact capture is not enabled"))
		case errors.Is(err, debugstore.ErrForbidden):
			writeError(w, r, apierr.New(apierr.KindForbidden, "bearer token did not match"))
		default:
			writeError(w, r, apierr.Wrap(apierr.KindInternal, "could not fetch debug artifacts", err))
		}
		return
	}

	views := make([]artifactView, 0, len(items))
	for _, a := range items {
		views = append(views, artifactView{Type: string(a.Type), Timestamp: a.Timestamp, Data: a.Data})
	}
	writeJSON(w, r, http.StatusOK, debugArtifactsResponse{TraceID: traceID, Artifacts: views})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
