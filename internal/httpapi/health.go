package httpapi

import (
	"context"
	"net/http"
	"time"
)

// DependencyStatus is one probed dependency's reported health.
type DependencyStatus string

const (
	DependencyOK          DependencyStatus = "ok"
	DependencyDegraded    DependencyStatus = "degraded"
	DependencyUnavailable DependencyStatus = "unavailable"
)

// DependencyProbe checks one external collaborator (vector store, cache,
// metadata store) within the given timeout and reports its status.
type DependencyProbe struct {
	Name  string
	Check func(ctx context.Context) DependencyStatus
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version"`
	Timestamp    time.Time                   `json:"timestamp"`
	Environment  string                      `json:"environment"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// healthHandler answers section 6's GET /health: aggregate status derived
// from the worst individual dependency probe, 503 whenever any dependency
// is unavailable.
type healthHandler struct {
	version     string
	environment string
	probes      []DependencyProbe
	probeTimeout time.Duration
}

func newHealthHandler(version, environment string, probes []DependencyProbe) *healthHandler {
	return &healthHandler{version: version, environment: environment, probes: probes, probeTimeout: 2 * time.Second}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]DependencyStatus, len(h.probes))
	worst := DependencyOK

	ctx, cancel := context.WithTimeout(r.Context(), h.probeTimeout)
	defer cancel()

	for _, probe := range h.probes {
		status := probe.Check(ctx)
		deps[probe.Name] = status
		if status == DependencyUnavailable {
			worst = DependencyUnavailable
		} else if status == DependencyDegraded && worst == DependencyOK {
			worst = DependencyDegraded
		}
	}

	overall := "healthy"
	httpStatus := http.StatusOK
	switch worst {
	case DependencyDegraded:
		overall = "degraded"
	case DependencyUnavailable:
		overall = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, healthResponse{
		Status:       overall,
		Version:      h.version,
		Timestamp:    time.Now().UTC(),
		Environment:  h.environment,
		Dependencies: deps,
	})
}
