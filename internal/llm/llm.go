// Package llm abstracts the optional large-language-model capability that
// internal/engine calls for vocabulary extraction and teachable-sentence
// selection (spec.md §4.4). It follows the teacher's
// internal/services/openai_client.go hand-rolled HTTP/retry shape, but
// narrows the surface to the single {available, rate_limited, unavailable}
// contract spec.md §4.4 names so the engine never has to inspect a raw HTTP
// status.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yungbote/lesson-pipeline/internal/apperr"
	"github.com/yungbote/lesson-pipeline/internal/httpx"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

// Variant is the three-way outcome of one Complete call (spec.md §4.4).
type Variant int

const (
	Available Variant = iota
	RateLimited
	Unavailable
)

func (v Variant) String() string {
	switch v {
	case Available:
		return "available"
	case RateLimited:
		return "rate_limited"
	default:
		return "unavailable"
	}
}

// Client is the engine's LLM collaborator. A nil *Client is valid and always
// reports Unavailable, so callers can construct it unconditionally from
// config and let the zero value carry "LLM_API_KEY unset" (spec.md §6.3).
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

// New returns nil when apiKey is empty, matching spec.md §4.4: "the engine
// MUST produce a valid ExerciseSet even when the LLM is entirely unavailable."
func New(log *logger.Logger, apiKey, model, baseURL string, timeout time.Duration) *Client {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = "gpt-5.2"
	}
	return &Client{
		log:        log.With("component", "LLMClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 2,
	}
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string      { return fmt.Sprintf("llm http %d: %s", e.StatusCode, e.Body) }
func (e *httpError) HTTPStatusCode() int { return e.StatusCode }

// Complete asks the model to respond to prompt and classifies the outcome.
// On anything other than Available the returned text is empty and the
// caller is expected to fall back to its heuristic path (spec.md §4.4).
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, Variant, error) {
	if c == nil {
		return "", Unavailable, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		text, variant, err := c.completeOnce(ctx, system, prompt)
		if variant == Available {
			return text, Available, nil
		}
		if variant == RateLimited {
			c.log.Warn("llm rate limited, falling back to heuristic path", "attempt", attempt)
			return "", RateLimited, err
		}
		lastErr = err
		if attempt < c.maxRetries && apperr.IsTransient(err) {
			time.Sleep(httpx.JitterSleep(time.Duration(attempt+1) * 200 * time.Millisecond))
			continue
		}
		break
	}
	return "", Unavailable, lastErr
}

func (c *Client) completeOnce(ctx context.Context, system, prompt string) (string, Variant, error) {
	body := completionRequest{
		Model: c.model,
		Messages: []completionMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", Unavailable, fmt.Errorf("encode llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return "", Unavailable, fmt.Errorf("build llm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", Unavailable, fmt.Errorf("call llm: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Unavailable, fmt.Errorf("read llm response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", RateLimited, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", Unavailable, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", Unavailable, fmt.Errorf("parse llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", Unavailable, fmt.Errorf("llm response had no choices")
	}
	return parsed.Choices[0].Message.Content, Available, nil
}
