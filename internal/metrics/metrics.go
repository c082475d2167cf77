// Package metrics provides an optional, opt-in Prometheus registry for LLM
// call/retry/error counters and a per-stage histogram of LLM call latency,
// exposed on a
// loopback HTTP listener when configured. It is the concrete implementation
// behind llmprovider.Tracer; when metrics are disabled the pipeline runs
// with llmprovider.NoopTracer or llmprovider.SlogTracer instead.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmvldz/enginebuilder/internal/llmprovider"
)

// Registry bundles the counters and histogram the pipeline updates, and the
// HTTP server exposing them in Prometheus text format.
type Registry struct {
	registry *prometheus.Registry
	server   *http.Server

	llmCalls   *prometheus.CounterVec
	llmRetries *prometheus.CounterVec
	llmErrors  *prometheus.CounterVec
	stageDur   *prometheus.HistogramVec

	logger *slog.Logger
}

// New constructs a Registry with its metrics registered but no listener
// started. Call Serve to expose it over HTTP.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		logger:   slog.Default().With("component", "metrics"),
		llmCalls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "engine_llm_calls_total",
			Help: "Total LLM completion calls by stage and model.",
		}, []string{"stage", "model"}),
		llmRetries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "engine_llm_retries_total",
			Help: "Total LLM completion retries by stage and model.",
		}, []string{"stage", "model"}),
		llmErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "engine_llm_errors_total",
			Help: "Total terminal LLM completion errors by stage and model.",
		}, []string{"stage", "model"}),
		stageDur: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "engine_stage_duration_seconds",
			Help:    "Wall-clock latency of LLM completion calls, by stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}

	return r
}

// Serve starts the loopback HTTP listener at addr (e.g. "127.0.0.1:9090")
// exposing /metrics in the background. Call Shutdown to stop it.
func (r *Registry) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	r.server = &http.Server{Handler: mux}
	go func() {
		if err := r.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("metrics server stopped", "error", err)
		}
	}()

	r.logger.Info("metrics server listening", "addr", ln.Addr().String())
	return nil
}

// Shutdown gracefully stops the HTTP listener, if one was started.
func (r *Registry) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}

// RecordCall implements llmprovider.Tracer, incrementing the call counter
// (and, when the span carries an error marker, the error counter) and
// observing the span's duration against the stage duration histogram.
func (r *Registry) RecordCall(span llmprovider.Span) {
	r.llmCalls.WithLabelValues(span.Stage, span.Model).Inc()
	if span.Retries > 0 {
		r.llmRetries.WithLabelValues(span.Stage, span.Model).Add(float64(span.Retries))
	}
	if span.Err != nil {
		r.llmErrors.WithLabelValues(span.Stage, span.Model).Inc()
	}
	if span.Latency > 0 {
		r.stageDur.WithLabelValues(span.Stage).Observe(span.Latency.Seconds())
	}
}

var _ llmprovider.Tracer = (*Registry)(nil)
