package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lamim/irida-prep/internal/config"
)

const (
	// DefaultMaxRetries is the default maximum number of retry attempts
	DefaultMaxRetries = 3
	// DefaultBaseRetryDelay is the base delay for exponential backoff
	DefaultBaseRetryDelay = 2 * time.Second
	// RateLimitBackoffMultiplier is the multiplier for rate limit backoff (3^n)
	RateLimitBackoffMultiplier = 3
	// tokenExpiryMargin renews the access token slightly before the server drops it
	tokenExpiryMargin = 30 * time.Second
)

// RequestRecorder receives the duration of every API call
type RequestRecorder interface {
	RecordAPIRequest(endpoint string, duration time.Duration, success bool)
}

// Client talks to the IRIDA REST API on behalf of one user
type Client struct {
	baseURL        string
	settings       config.Settings
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         *slog.Logger
	recorder       RequestRecorder
	maxRetries     int
	baseRetryDelay time.Duration

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new API client from resolved settings
func NewClient(settings *config.Settings, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(settings.BaseURL, "/"),
		settings: *settings,
		httpClient: &http.Client{
			Timeout: settings.RequestTimeout(),
		},
		limiter:        newLimiter(DefaultRequestsPerMinute),
		logger:         logger.With("component", "irida_api"),
		maxRetries:     DefaultMaxRetries,
		baseRetryDelay: DefaultBaseRetryDelay,
	}
}

// SetRecorder attaches a metrics recorder
func (c *Client) SetRecorder(r RequestRecorder) {
	c.recorder = r
}

// requestFunc builds a fresh request for each attempt so bodies can be replayed
type requestFunc func(ctx context.Context) (*http.Request, error)

// do sends the request built by build, retrying transient failures with
// exponential backoff, and decodes a JSON reply into out when out is non-nil
func (c *Client) do(ctx context.Context, endpoint string, build requestFunc, out any) error {
	return c.request(ctx, endpoint, build, out, c.maxRetries)
}

// doOnce sends the request a single time. The error is returned as is.
// Used for calls that must not be repeated, such as creating a project.
func (c *Client) doOnce(ctx context.Context, endpoint string, build requestFunc, out any) error {
	return c.request(ctx, endpoint, build, out, 0)
}

func (c *Client) request(ctx context.Context, endpoint string, build requestFunc, out any, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Calculate backoff with jitter
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseRetryDelay

			// For rate limit errors, use longer delays (3^n: 6s, 18s, 54s)
			if isRateLimitError(lastErr) {
				backoff = time.Duration(math.Pow(RateLimitBackoffMultiplier, float64(attempt))) * c.baseRetryDelay
			}

			jitter := time.Duration(float64(backoff) * 0.1 * (2*float64(time.Now().UnixNano()%100)/100 - 1))
			sleepDuration := backoff + jitter

			c.logger.Warn("Retrying API request",
				"attempt", attempt,
				"max_retries", maxRetries,
				"backoff", sleepDuration,
				"endpoint", endpoint,
				"is_rate_limit", isRateLimitError(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleepDuration):
			}
		}

		err := c.attemptWithLogin(ctx, endpoint, build, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if isUnauthorized(err) || !isRetryable(err) {
			return err
		}
	}

	if maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// attemptWithLogin sends once and, when the server rejects the token,
// logs in again and sends a second time
func (c *Client) attemptWithLogin(ctx context.Context, endpoint string, build requestFunc, out any) error {
	err := c.attempt(ctx, endpoint, build, out)
	if !isUnauthorized(err) {
		return err
	}
	c.logger.Debug("Access token rejected, logging in again", "endpoint", endpoint)
	c.clearToken()
	return c.attempt(ctx, endpoint, build, out)
}

func (c *Client) attempt(ctx context.Context, endpoint string, build requestFunc, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := build(ctx)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	err = c.send(req, out)
	if c.recorder != nil {
		c.recorder.RecordAPIRequest(endpoint, time.Since(start), err == nil)
	}
	return err
}

// send performs one HTTP exchange and converts non-2xx replies into *APIError
func (c *Client) send(req *http.Request, out any) error {
	c.logger.Debug("API request", "method", req.Method, "url", req.URL.String())

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return &APIError{
			Message:    fmt.Sprintf("request failed: %v", err),
			StatusCode: 0,
			Retryable:  true,
		}
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return newAPIError(httpResp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// accessToken returns a cached token or performs the OAuth2 password grant
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.settings.ClientID},
		"client_secret": {c.settings.ClientSecret},
		"username":      {c.settings.Username},
		"password":      {c.settings.Password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("oauth/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tok tokenResponse
	start := time.Now()
	err = c.send(req, &tok)
	if c.recorder != nil {
		c.recorder.RecordAPIRequest("oauth/token", time.Since(start), err == nil)
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			// Bad credentials will not fix themselves
			apiErr.Retryable = false
		}
		return "", fmt.Errorf("authentication failed: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("authentication failed: no access token in response")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpiryMargin)
	if tok.ExpiresIn == 0 {
		c.tokenExpiry = time.Now().Add(time.Hour)
	}
	c.logger.Debug("Obtained access token", "expires_in", tok.ExpiresIn)
	return c.token, nil
}

func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// jsonRequest builds a requestFunc that sends body encoded as JSON
func (c *Client) jsonRequest(method, path string, body any) (requestFunc, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	return func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.url(path), r)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}, nil
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

func isRateLimitError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized && apiErr.Retryable
	}
	return false
}

func isStatusCodeRetryable(statusCode int) bool {
	// Retry on rate limits and server errors
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}

// APIError represents an error returned by the IRIDA API
type APIError struct {
	Message    string
	StatusCode int
	Retryable  bool
}

func newAPIError(statusCode int, body []byte) *APIError {
	retryable := isStatusCodeRetryable(statusCode) || statusCode == http.StatusUnauthorized

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		for _, msg := range []string{errResp.Message, errResp.Description, errResp.Error} {
			if msg != "" {
				return &APIError{Message: msg, StatusCode: statusCode, Retryable: retryable}
			}
		}
	}

	return &APIError{
		Message:    fmt.Sprintf("API request failed with status %d: %s", statusCode, string(body)),
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}
