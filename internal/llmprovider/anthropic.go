package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// anthropicVersion pins the wire protocol revision this client speaks.
const anthropicVersion = "2023-06-01"

// AnthropicProvider calls an Anthropic-compatible messages endpoint.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tracer     Tracer
}

// NewAnthropicProvider constructs an AnthropicProvider. baseURL defaults to
// the public Anthropic API when empty.
func NewAnthropicProvider(apiKey, baseURL string, tracer Tracer) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &AnthropicProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{},
		limiter:    newLimiter(),
		tracer:     tracer,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, system, user string, params Params) (*CompletionResult, error) {
	start := time.Now()
	spanID := newSpanID()

	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	reqBody := anthropicRequest{
		Model:       params.Model,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
		MaxTokens:   maxTokens,
		Temperature: params.Temperature,
	}

	var result *CompletionResult
	retries, err := withRetry(ctx, params.MaxRetries, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		res, callErr := p.doCall(ctx, reqBody, params.Timeout)
		if callErr != nil {
			return callErr
		}
		result = res
		return nil
	})

	p.tracer.RecordCall(Span{
		ID:        spanID,
		ProblemID: params.ProblemID,
		Stage:     params.Stage,
		Model:     params.Model,
		SystemLen: len(system),
		UserLen:   len(user),
		Latency:   time.Since(start),
		Retries:   retries,
		Err:       err,
	})

	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}
	result.SpanID = spanID
	return result, nil
}

func (p *AnthropicProvider) doCall(ctx context.Context, reqBody anthropicRequest, timeout time.Duration) (*CompletionResult, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, backoffPermanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, backoffPermanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if isRetryableErr(err) {
			return nil, err
		}
		return nil, backoffPermanent(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		if retryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("anthropic http %d: %s", resp.StatusCode, string(body))
		}
		return nil, backoffPermanent(fmt.Errorf("anthropic http %d: %s", resp.StatusCode, string(body)))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, backoffPermanent(fmt.Errorf("decode response: %w", err))
	}
	if parsed.Error != nil {
		return nil, backoffPermanent(fmt.Errorf("anthropic error: %s", parsed.Error.Message))
	}
	if len(parsed.Content) == 0 {
		return nil, backoffPermanent(fmt.Errorf("anthropic response had no content blocks"))
	}

	return &CompletionResult{
		Text:             parsed.Content[0].Text,
		PromptTokens:     parsed.Usage.InputTokens,
		CompletionTokens: parsed.Usage.OutputTokens,
	}, nil
}
