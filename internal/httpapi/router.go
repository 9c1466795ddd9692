package httpapi

import (
	"net/http"
	"time"

	"github.com/intelligencedev/ragserve/internal/debugstore"
	"github.com/intelligencedev/ragserve/internal/extract"
	"github.com/intelligencedev/ragserve/internal/ingestion"
	"github.com/intelligencedev/ragserve/internal/query"
	"github.com/intelligencedev/ragserve/internal/ratelimit"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Deps collects everything the router needs to construct handlers; main
// builds one of these after wiring the pipelines.
type Deps struct {
	Version         string
	Environment     string
	HealthProbes    []DependencyProbe
	Ingestion       *ingestion.Orchestrator
	Query           *query.Orchestrator
	Embedder        *query.QueryEmbedder
	Retriever       *query.Retriever
	Artifacts       *debugstore.Logger
	RateLimiter     ratelimit.Limiter
	RateLimitPerMin int
	QueryTimeoutSec float64
	AccessLog       zerolog.Logger
	ExtractOptions  extract.Options
	JobQueue        ingestion.JobQueue
}

// NewRouter builds the full external HTTP surface from section 6: health,
// ingestion (async and sync variants), query/retrieve, and debug artifacts,
// wrapped in trace, rate-limit, and access-log middleware.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", newHealthHandler(d.Version, d.Environment, d.HealthProbes))

	uploadHandler := &ingestHandler{orchestrator: d.Ingestion, sync: false, log: d.Ingestion.Log, extractOpts: d.ExtractOptions, queue: d.JobQueue}
	syncIngestHandler := &ingestHandler{orchestrator: d.Ingestion, sync: true, log: d.Ingestion.Log, extractOpts: d.ExtractOptions}
	statusHandler := &ingestStatusHandler{orchestrator: d.Ingestion}

	mux.Handle("/api/ingest/upload", withRateLimit(d.RateLimiter, d.RateLimitPerMin, time.Minute, uploadHandler))
	mux.Handle("/api/ingest/status/", statusHandler)
	mux.Handle("/ingest", withRateLimit(d.RateLimiter, d.RateLimitPerMin, time.Minute, syncIngestHandler))
	mux.Handle("/ingest/status/", statusHandler)

	mux.Handle("/api/query", &queryHandler{orchestrator: d.Query, timeoutSeconds: d.QueryTimeoutSec})
	mux.Handle("/retrieve", &retrieveHandler{embedder: d.Embedder, retriever: d.Retriever})

	mux.Handle("/api/debug/artifacts", &debugHandler{artifacts: d.Artifacts})

	traced := otelhttp.NewHandler(mux, "ragserve")
	return withTraceContext(withAccessLog(d.AccessLog, traced))
}
