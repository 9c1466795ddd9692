package httpapi

import (
	"net/http"
	"time"

	"github.com/intelligencedev/ragserve/internal/apierr"
	"github.com/intelligencedev/ragserve/internal/ratelimit"
	"github.com/intelligencedev/ragserve/internal/trace"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

// tracer is a no-op tracer until a real exporter is wired in main; span
// creation here is cheap scaffolding for section 5's "trace context
// propagation" requirement, independent of whether anything exports spans.
var tracer = otel.Tracer("ragserve/httpapi")

// withTraceContext accepts an inbound X-Trace-ID or mints one, attaches it
// to the request context, starts a span, and echoes the id on every
// response, per section 4.7.
func withTraceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := trace.New(r.Header.Get("X-Trace-ID"), "", r.Header.Get("X-Request-ID"))
		ctx := trace.WithContext(r.Context(), tc)

		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		w.Header().Set("X-Trace-ID", tc.TraceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAccessLog logs one structured line per request via zerolog, kept
// deliberately separate from the per-stage logrus loggers used inside the
// pipelines (the teacher repo mixes both libraries across binaries).
func withAccessLog(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info().
			Str("trace_id", trace.IDFromContext(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRateLimit enforces the per-user upload quota named in section 6's
// 429 RateLimitError. userKey extracts the caller identity from the
// request (falling back to remote address when no user id is presented).
func withRateLimit(limiter ratelimit.Limiter, limit int, window time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		user := userKey(r)
		allowed, retryAfter, err := limiter.IsAllowed(r.Context(), user, limit, window)
		if err != nil {
			writeError(w, r, apierr.Wrap(apierr.KindInternal, "rate limiter unavailable", err))
			return
		}
		if !allowed {
			writeError(w, r, apierr.New(apierr.KindRateLimit, "upload rate limit exceeded").
				WithDetails(map[string]any{"retry_after_seconds": retryAfter.Seconds()}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userKey(r *http.Request) string {
	if u := r.Header.Get("X-User-ID"); u != "" {
		return u
	}
	return r.RemoteAddr
}
