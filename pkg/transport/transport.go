// Package transport provides the core UserHub management API HTTP client
// with quota tracking, bearer-token authorization, retries, and error
// classification.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/userhub/userhub-admin-go/pkg/quota"
)

// Prometheus metrics for UserHub client operations.
var (
	userhubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userhub_requests_total",
		Help: "Total UserHub requests by endpoint and status",
	}, []string{"endpoint", "status"})

	userhubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userhub_request_duration_seconds",
		Help:    "UserHub request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	userhubErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userhub_errors_total",
		Help: "Total UserHub errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 quota errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

const (
	// DefaultBaseURL is the production UserHub management API.
	DefaultBaseURL = "https://identity.userhub.io"

	// DefaultUserAgent identifies this SDK when none is configured.
	DefaultUserAgent = "userhub-admin-go/1.0"
)

// TokenSource supplies bearer tokens for request authorization.
// Implementations live in pkg/credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a plain function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Request describes one management API call, relative to the project root.
type Request struct {
	// Method is the HTTP method (GET, POST, PATCH, DELETE).
	Method string

	// Path is appended to /v1/projects/{project}, e.g. "/accounts:list".
	Path string

	// Query holds optional query parameters.
	Query url.Values

	// Body is JSON-encoded when non-nil.
	Body any
}

// Response is a fully-read snapshot of an API response. The body is consumed
// and closed before Do returns, so a Response can be held, logged, or handed
// to error classification without lifecycle concerns.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is the UserHub management API client.
type Client struct {
	httpClient *http.Client
	redis      *redis.Client
	quota      *quota.Tracker
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for shared quota state (optional; quota gating is
	// disabled when nil)
	Redis *redis.Client

	// BaseURL of the UserHub management API
	BaseURL string

	// ProjectID scopes every request to one UserHub project
	ProjectID string

	// TokenSource supplies bearer tokens for the Authorization header
	TokenSource TokenSource

	// UserAgent header sent on every request
	UserAgent string

	// Timeout for a single HTTP attempt
	Timeout time.Duration

	// Retry overrides; zero values fall back to per-class defaults
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Logger overrides the default component logger (optional)
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(projectID string, tokenSource TokenSource) Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		ProjectID:   projectID,
		TokenSource: tokenSource,
		UserAgent:   DefaultUserAgent,
		Timeout:     30 * time.Second,
	}
}

// New creates a new UserHub transport client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	if cfg.TokenSource == nil {
		return nil, fmt.Errorf("token source is required")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	// Initialize logger
	logger := log.With().Str("component", "userhub-transport").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	// Create quota tracker when shared state is available
	var tracker *quota.Tracker
	if cfg.Redis != nil {
		tracker = quota.NewTracker(cfg.Redis, logger)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		redis:  cfg.Redis,
		quota:  tracker,
		config: cfg,
		logger: logger,
	}, nil
}

// Do performs an API request with quota gating, token authorization, retry
// logic, and error classification. This is the core request method that
// orchestrates all client features.
//
// On success the returned Response holds the fully-read body. On failure the
// returned error is an *Error for HTTP-level failures (possibly wrapped in
// ErrRetryExhausted after retries), or a wrapped sentinel for quota blocks
// and cancellation.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	endpoint := req.Path

	// Start request timing
	startTime := time.Now()
	defer func() {
		userhubRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check shared quota
	if c.quota != nil {
		allowed, err := c.quota.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Quota check failed")
			return nil, fmt.Errorf("quota check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by quota tracker")
			userhubRequestsTotal.WithLabelValues(endpoint, "quota_blocked").Inc()
			return nil, fmt.Errorf("request blocked: %w", ErrQuotaExceeded)
		}
	}

	// Step 2: Acquire bearer token (once per logical request; a cached
	// source makes this cheap across retries)
	token, err := c.config.TokenSource.Token(ctx)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Token acquisition failed")
		return nil, fmt.Errorf("acquire access token: %w", err)
	}

	// Step 3: Marshal the body once; every attempt gets a fresh reader
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	fullURL := c.buildURL(req)
	requestID := uuid.New().String()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("request_id", requestID).
		Msg("Executing UserHub request")

	// Step 4: Execute HTTP request with retry logic
	var resp *Response

	override := RetryConfig{
		MaxAttempts:    c.config.MaxRetries,
		InitialBackoff: c.config.InitialBackoff,
		MaxBackoff:     c.config.MaxBackoff,
	}

	retryErr := retryWithBackoff(ctx, override, func() error {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		httpReq.Header.Set("User-Agent", c.config.UserAgent)
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("X-Request-Id", requestID)
		if bodyBytes != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}

		// Execute the HTTP request
		httpResp, reqErr := c.httpClient.Do(httpReq)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			userhubErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			userhubRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		// Snapshot the body so retries and error classification never deal
		// with a half-consumed stream
		data, readErr := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if readErr != nil {
			c.logger.Error().Err(readErr).Str("endpoint", endpoint).Msg("Reading response body failed")
			userhubErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			userhubRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return readErr
		}

		// Update quota state from response headers
		if c.quota != nil {
			if err := c.quota.UpdateFromHeaders(ctx, httpResp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update quota from headers")
			}
		}

		snapshot := &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       data,
		}

		// Handle HTTP errors
		if httpResp.StatusCode >= 400 {
			errClass := c.classifyError(httpResp.StatusCode)
			userhubErrorsTotal.WithLabelValues(string(errClass)).Inc()
			userhubRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(httpResp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", httpResp.StatusCode).
				Str("error_class", string(errClass)).
				Str("request_id", requestID).
				Msg("UserHub request error")

			return newAPIError(snapshot, errClass)
		}

		// Success
		userhubRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(httpResp.StatusCode)).Inc()
		resp = snapshot
		return nil
	}, classFromError)

	if retryErr != nil {
		return nil, retryErr
	}

	return resp, nil
}

// classifyError categorizes an HTTP status for retry handling and observability.
func (c *Client) classifyError(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// buildURL assembles the absolute request URL under the project root.
func (c *Client) buildURL(req *Request) string {
	u := c.config.BaseURL + "/v1/projects/" + c.config.ProjectID + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// Get performs a GET request against a project-relative path.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request against a project-relative path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// Quota returns the quota tracker, or nil when no redis client is configured.
func (c *Client) Quota() *quota.Tracker {
	return c.quota
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
