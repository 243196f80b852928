// Package metadata provides shared HTTP plumbing for the upstream
// metadata clients. Each source (Kitsu, Jikan, Fribb, TMDB) has its own
// package with its own types and sentinel errors; the retry loop and
// backoff policy live here so all of them meter upstreams the same way.
package metadata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// maxBackoff caps a single wait between tries, whatever Retry-After
// asks for.
const maxBackoff = time.Minute

// RetryOptions bounds the retry loop around one logical request.
type RetryOptions struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay seeds the exponential backoff between tries.
	BaseDelay time.Duration
}

// DefaultRetry is the budget the pipelines run with: three tries with
// one then two second waits.
var DefaultRetry = RetryOptions{Attempts: 3, BaseDelay: time.Second}

// Get executes a GET request, retrying 429 and 5xx responses with
// exponential backoff. A Retry-After header on a 429 overrides the
// computed delay. The final status and body are returned as data;
// callers map statuses onto their own sentinel errors. Transport
// failures are returned as-is without retrying.
func Get(ctx context.Context, hc *http.Client, rawURL string, header http.Header, retry RetryOptions, logger *slog.Logger) (int, []byte, error) {
	attempts := retry.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	baseDelay := retry.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	var status int
	var body []byte
	for attempt := range attempts {
		var retryAfter string
		var err error
		status, body, retryAfter, err = getOnce(ctx, hc, rawURL, header)
		if err != nil {
			return 0, nil, err
		}
		if !retryableStatus(status) || attempt == attempts-1 {
			return status, body, nil
		}

		wait := baseDelay << attempt
		if status == http.StatusTooManyRequests {
			if d, ok := parseRetryAfter(retryAfter); ok {
				wait = d
			}
		}
		if wait > maxBackoff {
			wait = maxBackoff
		}

		if logger != nil {
			logger.Debug("retrying upstream request",
				"url", rawURL,
				"status", status,
				"attempt", attempt+1,
				"wait", wait.String(),
			)
		}

		select {
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return status, body, nil
}

func getOnce(ctx context.Context, hc *http.Client, rawURL string, header http.Header) (int, []byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, "", fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, "", fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, body, resp.Header.Get("Retry-After"), nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// parseRetryAfter handles the delay-seconds form. The HTTP-date form is
// not worth supporting; none of our upstreams send it.
func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// Truncate shortens an upstream body for inclusion in an error message.
func Truncate(body []byte) string {
	const limit = 200
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
