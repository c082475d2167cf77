// Package llmprovider exposes a single capability -- "send a prompt, receive
// a text completion" -- behind a uniform Provider interface backed by two
// concrete wire-compatible implementations (OpenAI-style, Anthropic-style).
// Model selection, retry, rate limiting, and tracing all live here so every
// pipeline stage that calls an LLM shares the same transport discipline.
package llmprovider

import (
	"context"
	"time"
)

// Params carries the per-call knobs a stage supplies alongside its prompts.
type Params struct {
	// Model is the provider-specific model name, passed through unchanged.
	Model string

	// MaxTokens bounds the completion length.
	MaxTokens int

	// Temperature controls sampling randomness. Zero value is the default
	// (deterministic-leaning) temperature most stages want.
	Temperature float64

	// Timeout bounds a single call attempt, not including retries.
	Timeout time.Duration

	// MaxRetries bounds how many times a transient failure is retried
	// before the call surfaces as a terminal error. Zero means "use the
	// package default" (defaultMaxRetries).
	MaxRetries int

	// ProblemID and Stage are trace metadata only; they never affect the
	// prompt or the response.
	ProblemID string
	Stage     string
}

// CompletionResult is what a successful Complete call returns.
type CompletionResult struct {
	// Text is the model's completion text.
	Text string

	// PromptTokens and CompletionTokens are usage counts reported by the
	// backend, when available. Zero means the backend didn't report them.
	PromptTokens     int
	CompletionTokens int

	// SpanID identifies the trace event emitted for this call.
	SpanID string
}

// Provider is the capability every pipeline stage calls through. Both
// backends retry transient errors internally; callers only ever see a
// successful CompletionResult or a terminal error.
type Provider interface {
	Complete(ctx context.Context, system, user string, params Params) (*CompletionResult, error)
}
