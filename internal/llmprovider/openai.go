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

// OpenAIProvider calls an OpenAI-compatible chat completions endpoint. The
// base URL is configurable so the same implementation serves OpenAI itself
// and any OpenAI-wire-compatible gateway.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tracer     Tracer
}

// NewOpenAIProvider constructs an OpenAIProvider. baseURL defaults to the
// public OpenAI API when empty.
func NewOpenAIProvider(apiKey, baseURL string, tracer Tracer) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{},
		limiter:    newLimiter(),
		tracer:     tracer,
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string, params Params) (*CompletionResult, error) {
	start := time.Now()
	spanID := newSpanID()

	reqBody := openAIRequest{
		Model: params.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   params.MaxTokens,
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
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	result.SpanID = spanID
	return result, nil
}

func (p *OpenAIProvider) doCall(ctx context.Context, reqBody openAIRequest, timeout time.Duration) (*CompletionResult, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, backoffPermanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, backoffPermanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

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
			return nil, fmt.Errorf("openai http %d: %s", resp.StatusCode, string(body))
		}
		return nil, backoffPermanent(fmt.Errorf("openai http %d: %s", resp.StatusCode, string(body)))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, backoffPermanent(fmt.Errorf("decode response: %w", err))
	}
	if parsed.Error != nil {
		return nil, backoffPermanent(fmt.Errorf("openai error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return nil, backoffPermanent(fmt.Errorf("openai response had no choices"))
	}

	return &CompletionResult{
		Text:             parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}
