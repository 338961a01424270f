package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/metrics"
)

// ErrNoContent is returned when the upstream answers 204, which TzKT uses for missing objects.
var ErrNoContent = errors.New("no content")

// HTTPError carries a non-2xx upstream response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 or an empty 204 answer.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNoContent) {
		return true
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// APIClient handles JSON-over-HTTP communication with one upstream base URL
type APIClient struct {
	baseURL    string
	upstream   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures an APIClient
type Option func(*APIClient)

// WithTimeout overrides the default 30s request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *APIClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit caps outgoing requests at rps with the given burst
func WithRateLimit(rps float64, burst int) Option {
	return func(c *APIClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying http.Client, mostly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) {
		c.httpClient = hc
	}
}

// NewAPIClient creates a new API client for baseURL; upstream labels logs and metrics
func NewAPIClient(baseURL, upstream string, opts ...Option) *APIClient {
	c := &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		upstream: upstream,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the upstream base URL without a trailing slash
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// BuildURL constructs a full URL for the given endpoint
func (c *APIClient) BuildURL(endpoint string) string {
	return c.baseURL + endpoint
}

// Get makes a GET request to the specified endpoint and decodes the JSON answer into result
func (c *APIClient) Get(ctx context.Context, endpoint string, result interface{}) error {
	return c.request(ctx, http.MethodGet, endpoint, result)
}

// GetJSON is the typed form of Get
func GetJSON[T any](ctx context.Context, c *APIClient, endpoint string) (*T, error) {
	var result T
	if err := c.Get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if c.limiter.Tokens() < 1 {
		metrics.RateLimitWaits.WithLabelValues(c.upstream).Inc()
	}
	return c.limiter.Wait(ctx)
}

// request is the core HTTP request method
func (c *APIClient) request(ctx context.Context, method, endpoint string, result interface{}) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	url := c.BuildURL(endpoint)
	start := time.Now()
	logger.Debug("Starting %s request to %s", method, url)

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	metrics.HTTPLatency.WithLabelValues(c.upstream).Observe(elapsed.Seconds())
	if err != nil {
		metrics.HTTPRequests.WithLabelValues(c.upstream, metrics.StatusClass(0)).Inc()
		logger.Error("Request failed after (%s) %v: %v", url, elapsed, err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.HTTPRequests.WithLabelValues(c.upstream, metrics.StatusClass(resp.StatusCode)).Inc()
	logger.Debug("Request to %s completed in %v with status %d", url, elapsed, resp.StatusCode)

	if resp.StatusCode == http.StatusNoContent {
		return ErrNoContent
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode != http.StatusNotFound {
			logger.Error("%s: HTTP error %d: %s", url, resp.StatusCode, string(bodyBytes))
		}
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			logger.Error("%s: Error decoding response: %v", url, err)
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// Ping issues a GET against endpoint and only checks for a 2xx answer
func (c *APIClient) Ping(ctx context.Context, endpoint string) error {
	return c.request(ctx, http.MethodGet, endpoint, nil)
}

// BuildURLWithParams properly builds a URL with query parameters
func BuildURLWithParams(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}

	parts := strings.SplitN(endpoint, "?", 2)
	baseURL := parts[0]

	values := url.Values{}
	if len(parts) > 1 {
		existingParams, _ := url.ParseQuery(parts[1])
		values = existingParams
	}

	for key, vs := range params {
		values.Del(key)
		for _, v := range vs {
			values.Add(key, v)
		}
	}

	return baseURL + "?" + values.Encode()
}
