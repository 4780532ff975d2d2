// Package translate abstracts the optional per-flashcard translation stage
// (spec.md §4.4 stage 5), grounded on original_source/src/ai/generators.py's
// _build_translator/_translate, which wraps a third-party translation
// service and falls back to an empty string on any failure.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

// Client is nil-safe: a nil *Client always returns "", matching spec.md
// §6.3 "absent value disables translation" and the Python original's
// try/except-to-empty-string fallback.
type Client struct {
	log          *logger.Logger
	targetLang   string
	httpClient   *http.Client
	translateURL string
}

// New returns nil when targetLang is empty.
func New(log *logger.Logger, targetLang string, timeout time.Duration) *Client {
	if targetLang == "" {
		return nil
	}
	return &Client{
		log:          log.With("component", "TranslateClient"),
		targetLang:   targetLang,
		httpClient:   &http.Client{Timeout: timeout},
		translateURL: "https://translate.googleapis.com/translate_a/single",
	}
}

// Enabled reports whether translation is configured, for metadata flags.
func (c *Client) Enabled() bool { return c != nil }

// Translate returns the target-language rendering of text, or "" on any
// failure — translation is an enrichment, never a hard dependency of
// exercise generation (spec.md §4.4: "the engine MUST produce a valid
// ExerciseSet even when" an optional capability is unavailable).
func (c *Client) Translate(ctx context.Context, text string) string {
	if c == nil || text == "" {
		return ""
	}
	out, err := c.translateOnce(ctx, text)
	if err != nil {
		c.log.Debug("translation failed, continuing without it", "error", err)
		return ""
	}
	return out
}

func (c *Client) translateOnce(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", c.targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.translateURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call translate service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read translate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("translate http %d", resp.StatusCode)
	}

	// The endpoint returns a nested JSON array; the first element holds
	// per-segment [translated, original, ...] triples.
	var parsed []any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse translate response: %w", err)
	}
	if len(parsed) == 0 {
		return "", fmt.Errorf("empty translate response")
	}
	segments, ok := parsed[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected translate response shape")
	}

	var buf bytes.Buffer
	for _, seg := range segments {
		pair, ok := seg.([]any)
		if !ok || len(pair) == 0 {
			continue
		}
		if s, ok := pair[0].(string); ok {
			buf.WriteString(s)
		}
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("no translated segments")
	}
	return buf.String(), nil
}
