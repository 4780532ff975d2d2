package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return l
}

func TestDispatch_ClassifiesOutcome(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   Outcome
	}{
		{"ok", http.StatusOK, Success},
		{"accepted", http.StatusAccepted, Success},
		{"rate_limited", http.StatusTooManyRequests, Retryable},
		{"timeout", http.StatusRequestTimeout, Retryable},
		{"server_error", http.StatusInternalServerError, Retryable},
		{"bad_request", http.StatusBadRequest, Permanent},
		{"unauthorized", http.StatusUnauthorized, Permanent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotHeader string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotHeader = r.Header.Get("Idempotency-Key")
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := New(testLogger(t), srv.URL, 2*time.Second)
			got, err := c.Dispatch(context.Background(), Payload{ClassID: "c-1"}, "key-123")
			if got != tc.want {
				t.Fatalf("Dispatch status=%d: want=%v got=%v err=%v", tc.status, tc.want, got, err)
			}
			if got == Success && err != nil {
				t.Fatalf("Dispatch success should not return an error, got %v", err)
			}
			if got != Success && err == nil {
				t.Fatalf("Dispatch non-success should return an error")
			}
			if gotHeader != "key-123" {
				t.Fatalf("expected Idempotency-Key header to be forwarded, got %q", gotHeader)
			}
		})
	}
}

func TestDispatch_ConnectionFailureIsRetryable(t *testing.T) {
	c := New(testLogger(t), "http://127.0.0.1:1", time.Second)
	got, err := c.Dispatch(context.Background(), Payload{ClassID: "c-1"}, "key-1")
	if err == nil {
		t.Fatalf("expected an error dispatching to an unreachable host")
	}
	if got != Retryable {
		t.Fatalf("want=Retryable got=%v", got)
	}
}
