// Package gaapi implements the HTTP client for the Google Analytics
// Reporting API v4 reports:batchGet endpoint. The client returns the raw
// response bytes so they reach the strict schema parser untouched. All
// methods are context-aware, respect the shared rate limiter, and retry on
// transient errors (429, 5xx).
package gaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://analyticsreporting.googleapis.com/v4/"
	batchGetPath   = "reports:batchGet"
	maxRetries     = 4
)

// Client is the Reporting API HTTP client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
	backoff    time.Duration
}

// NewClient creates a Client with the given bearer token and timeout.
func NewClient(token, baseURL string, timeout time.Duration, ratePerSec float64, log logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		log:     log,
		backoff: 500 * time.Millisecond,
	}
}

// SetBackoff overrides the base retry backoff. Tests use a tiny value.
func (c *Client) SetBackoff(d time.Duration) { c.backoff = d }

// APIError is a non-retryable error returned by the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// ValidateRequest checks that body looks like a batchGet request: a JSON
// object with a non-empty reportRequests array.
func ValidateRequest(body []byte) error {
	var req struct {
		ReportRequests []json.RawMessage `json:"reportRequests"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("request body is not a JSON object: %w", err)
	}
	if len(req.ReportRequests) == 0 {
		return fmt.Errorf("request body has no reportRequests")
	}
	if len(req.ReportRequests) > 5 {
		return fmt.Errorf("request body has %d reportRequests; the API accepts at most 5", len(req.ReportRequests))
	}
	return nil
}

// BatchGet posts body to reports:batchGet and returns the raw response.
func (c *Client) BatchGet(ctx context.Context, body []byte) ([]byte, error) {
	if err := ValidateRequest(body); err != nil {
		return nil, err
	}
	return c.post(ctx, batchGetPath, body)
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// post performs a POST request, handling rate limiting and retries.
func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + endpoint
	c.log.WithField("url", reqURL).WithField("bytes", len(body)).Debug("batchGet request")

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			c.log.WithField("attempt", attempt).WithField("backoff", backoff).Debug("retrying after backoff")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "gaflat-cli/1.0")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading body: %w", err)
			continue
		}

		c.log.WithField("status", resp.StatusCode).WithField("bytes", len(respBody)).Debug("batchGet response")

		// Retry on server errors and rate limiting
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, parseAPIError(resp.StatusCode, respBody)
		}
		return respBody, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// parseAPIError extracts the Google API error envelope when present.
func parseAPIError(status int, body []byte) error {
	var env struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &env)
	if env.Error.Message != "" {
		return &APIError{StatusCode: status, Status: env.Error.Status, Message: env.Error.Message}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}
