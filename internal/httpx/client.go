package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// StatusError is returned for non-2xx responses that are not retried.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, truncate(string(e.Body), 256))
}

// Client is a JSON-over-HTTP client with retry on 429.
type Client struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewClient creates a client. maxRetries counts retries after the first attempt.
func NewClient(timeout time.Duration, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Get performs a GET request with optional extra headers.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, headers)
}

// PostJSON marshals body and performs a POST request.
func (c *Client) PostJSON(ctx context.Context, url string, body any, headers http.Header) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Content-Type", "application/json")
	return c.do(ctx, http.MethodPost, url, payload, headers)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, headers http.Header) ([]byte, error) {
	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("executing request: %w", err))
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("reading response: %w", err))
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("HTTP 429 at %s (attempt %d/%d)", url, attempt, c.maxRetries+1)
		}

		return nil, backoff.Permanent(&StatusError{URL: url, StatusCode: resp.StatusCode, Body: body})
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.baseDelay * 16

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
