// Package dispatch sends the Class Monitor's trigger payload to the
// external workflow webhook, classifying the outcome the way spec.md §4.2
// and §6.1 require, and structurally following the teacher's
// internal/services/openai_client.go hand-rolled HTTP-with-retry shape.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yungbote/lesson-pipeline/internal/apperr"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

// Outcome is the tri-state classification of one dispatch attempt (spec.md
// §4.2): the monitor tick decides what to do with the class row based on
// this alone, never on the raw HTTP status.
type Outcome int

const (
	Success Outcome = iota
	Retryable
	Permanent
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	default:
		return "permanent"
	}
}

// Payload is the body POSTed to the webhook (spec.md §4.1/§6.1). TeacherEmail
// is omitted from the wire payload when empty, per spec.md §4.5 (the
// "unknown@example.com" placeholder from original_source is not carried
// into the wire contract; see SPEC_FULL.md supplemented feature #3).
type Payload struct {
	UserID       string `json:"user_id"`
	TeacherID    string `json:"teacher_id"`
	ClassID      string `json:"class_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	TeacherEmail string `json:"teacher_email,omitempty"`
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("webhook http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int { return e.StatusCode }

// Client posts Payloads to a fixed webhook URL with a per-call idempotency
// key carried as a header, so the external workflow can de-duplicate a
// cross-store failure where the webhook call succeeded but our own
// ai_triggered update did not commit (spec.md §9's "Dual-store consistency").
type Client struct {
	log        *logger.Logger
	url        string
	httpClient *http.Client
}

func New(log *logger.Logger, url string, timeout time.Duration) *Client {
	return &Client{
		log:        log.With("component", "DispatchClient"),
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Dispatch sends payload once and classifies the result. It never retries
// internally — spec.md §4.1 has the Class Monitor own retry cadence across
// polling ticks, not within a single dispatch call.
func (c *Client) Dispatch(ctx context.Context, payload Payload, idempotencyKey string) (Outcome, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return Permanent, fmt.Errorf("encode dispatch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return Permanent, fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A request-level failure (DNS, connection refused, client timeout)
		// is always treated as retryable: the external side never saw the
		// request, so there is nothing for it to have rejected permanently.
		return Retryable, fmt.Errorf("dispatch webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return Retryable, fmt.Errorf("read dispatch response: %w", readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Success, nil
	}

	httpErr := &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	if apperr.IsTransient(httpErr) {
		return Retryable, httpErr
	}
	return Permanent, httpErr
}
