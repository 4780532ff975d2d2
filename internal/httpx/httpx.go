// Package httpx holds small helpers shared by every component that makes
// outbound HTTP calls under a retry policy: jittered backoff and
// Retry-After-aware sleep duration.
package httpx

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// JitterSleep returns base +/- 20%, never negative. Used between LLM call
// retries so concurrent instances don't retry in lockstep.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	const spread = 0.2
	delta := base.Seconds() * spread
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// RetryAfterDuration reads a Retry-After header (seconds form) off resp,
// falling back to fallback and capping at max.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}
