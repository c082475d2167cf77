package llmprovider

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span is one recorded LLM call event. Tracers only ever see lengths, never
// prompt or completion contents, matching the provider's "inputs' lengths
// not contents" tracing contract.
type Span struct {
	ID        string
	ProblemID string
	Stage     string
	Model     string
	SystemLen int
	UserLen   int
	Latency   time.Duration
	Retries   int
	Err       error
}

// Tracer receives a Span after every call attempt sequence completes
// (successfully or not). Implementations must not block the caller for long;
// the provider does not buffer spans.
type Tracer interface {
	RecordCall(span Span)
}

// NoopTracer discards every span. It is the default when no observability
// backend is configured, and it never adds latency.
type NoopTracer struct{}

// RecordCall implements Tracer.
func (NoopTracer) RecordCall(Span) {}

// SlogTracer logs one structured event per call via log/slog. It stands in
// for the Langfuse backend referenced by configuration: span fields are
// logged locally rather than shipped to a remote collector, keeping the
// trace sink's observable contract (one event per call, lengths not
// contents) without requiring a live network dependency.
type SlogTracer struct {
	logger *slog.Logger
}

// NewSlogTracer returns a Tracer that logs each span at debug level.
func NewSlogTracer() *SlogTracer {
	return &SlogTracer{logger: slog.Default().With("component", "trace")}
}

// RecordCall implements Tracer.
func (t *SlogTracer) RecordCall(span Span) {
	attrs := []any{
		"span_id", span.ID,
		"problem_id", span.ProblemID,
		"stage", span.Stage,
		"model", span.Model,
		"system_len", span.SystemLen,
		"user_len", span.UserLen,
		"latency_ms", span.Latency.Milliseconds(),
		"retries", span.Retries,
	}
	if span.Err != nil {
		attrs = append(attrs, "error", span.Err.Error())
		t.logger.Warn("llm call failed", attrs...)
		return
	}
	t.logger.Debug("llm call completed", attrs...)
}

// newSpanID generates a fresh trace span identifier.
func newSpanID() string {
	return uuid.NewString()
}
