package alert

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

const sendTimeout = 5 * time.Second

// maxAttempts bounds delivery retries. Only network faults and 5xx responses
// are retried; a 4xx means resending the same payload cannot help.
const maxAttempts = 3

var httpClient = &http.Client{Timeout: sendTimeout}

// Send posts a decision event to a webhook endpoint, retrying transient
// failures with linear backoff.
func Send(cfg Config, event Event) error {
	body, err := FormatPayload(cfg.Format, event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryable, err := post(cfg, body)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", maxAttempts, lastErr)
}

// post performs a single delivery. The bool reports whether a failure is
// worth retrying.
func post(cfg Config, body []byte) (bool, error) {
	req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return true, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("webhook server error: HTTP %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("webhook rejected: HTTP %d", resp.StatusCode)
	}
}
