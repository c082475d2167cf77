package llmprovider

import "strings"

// Backends bundles one constructed Provider per wire family so call sites
// can route each stage's configured model to the right one without the
// pipeline packages needing to know about HTTP request shapes.
type Backends struct {
	Anthropic Provider
	OpenAI    Provider
}

// NewBackends constructs both backends from the raw API keys. A missing key
// leaves that backend nil; Select returns an error if a model routes to a
// nil backend.
func NewBackends(anthropicKey, openAIKey string, tracer Tracer) *Backends {
	b := &Backends{}
	if anthropicKey != "" {
		b.Anthropic = NewAnthropicProvider(anthropicKey, "", tracer)
	}
	if openAIKey != "" {
		b.OpenAI = NewOpenAIProvider(openAIKey, "", tracer)
	}
	return b
}

// Select routes a model name to the backend that serves it. Anthropic
// models are identified by the "claude" substring in their name (e.g.
// "claude-3-5-sonnet-latest"); every other model name routes to OpenAI.
// This keeps per-stage model selection a pure configuration concern: no
// stage hardcodes which backend it talks to.
func (b *Backends) Select(model string) (Provider, error) {
	if strings.Contains(strings.ToLower(model), "claude") {
		if b.Anthropic == nil {
			return nil, errBackendUnavailable("anthropic", model)
		}
		return b.Anthropic, nil
	}
	if b.OpenAI == nil {
		return nil, errBackendUnavailable("openai", model)
	}
	return b.OpenAI, nil
}

type backendUnavailableError struct {
	backend string
	model   string
}

func (e *backendUnavailableError) Error() string {
	return "no api key configured for " + e.backend + " backend required by model " + e.model
}

func errBackendUnavailable(backend, model string) error {
	return &backendUnavailableError{backend: backend, model: model}
}
