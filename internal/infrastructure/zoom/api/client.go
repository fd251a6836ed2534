// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package api is a minimal client for the Zoom REST API, covering the
// server-to-server OAuth flow and the past meeting reports.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// ReportsAPI defines the Zoom report operations used by the attendance reconciliation.
type ReportsAPI interface {
	GetPastMeetingParticipants(ctx context.Context, meetingUUID string) ([]ReportParticipant, error)
}

const (
	// BaseURL is the base URL for Zoom API
	BaseURL = "https://api.zoom.us/v2"
	// AuthURL is the OAuth token endpoint
	AuthURL = "https://zoom.us/oauth/token"
	// DefaultClientTimeout is the default HTTP client timeout for Zoom API requests
	DefaultClientTimeout = 30 * time.Second
	// TokenRefreshLeeway is how long before expiry a cached access token is replaced.
	TokenRefreshLeeway = 60 * time.Second
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Client represents a Zoom API client
type Client struct {
	httpClient *http.Client
	config     Config
}

// Config holds the configuration for the Zoom client
type Config struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override auth URL for testing
	AuthURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Ensure that Client implements ReportsAPI
var _ ReportsAPI = (*Client)(nil)

// credentialsSource fetches a fresh token on every call. Caching is left to
// the reuse source wrapping it so that the early refresh leeway applies.
type credentialsSource struct {
	ctx    context.Context
	config *clientcredentials.Config
}

func (s credentialsSource) Token() (*oauth2.Token, error) {
	return s.config.Token(s.ctx)
}

// NewClient creates a new Zoom API client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.AuthURL == "" {
		config.AuthURL = AuthURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}

	// Zoom Server-to-Server OAuth requires specific grant_type and account_id
	oauthConfig := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.AuthURL,
		EndpointParams: url.Values{
			"grant_type": []string{"account_credentials"},
			"account_id": []string{config.AccountID},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}

	transport := otelhttp.NewTransport(http.DefaultTransport)
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	})
	tokenSource := oauth2.ReuseTokenSourceWithExpiry(nil, credentialsSource{ctx: tokenCtx, config: oauthConfig}, TokenRefreshLeeway)

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &oauth2.Transport{
				Base:   transport,
				Source: tokenSource,
			},
		},
		config: config,
	}
}

// shouldRetry reports whether a failed attempt is retried. A zero status code
// is a transport error; with a response only 5xx and 429 are transient.
func shouldRetry(ctx context.Context, statusCode int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if statusCode == 0 {
		return err != nil
	}
	return statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// ±25% jitter
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	return max(time.Duration(backoff+jitter), c.config.InitialBackoff)
}

// doGet performs an authenticated GET against the Zoom API with retry logic and
// decodes a 200 response into out.
func (c *Client) doGet(ctx context.Context, path string, out any) error {
	endpoint := c.config.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt - 1)
			slog.WarnContext(ctx, "Zoom API request failed, retrying",
				"path", path,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff.String(),
				logging.ErrKey, lastErr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		statusCode, err := c.get(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(ctx, statusCode, err) {
			slog.ErrorContext(ctx, "Zoom API request failed (not retryable)",
				"path", path,
				"status", statusCode,
				"attempt", attempt+1,
				logging.ErrKey, err)
			return err
		}
	}

	slog.ErrorContext(ctx, "Zoom API request failed after all retries",
		"path", path,
		"attempts", c.config.MaxRetries+1,
		logging.ErrKey, lastErr)
	return fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// get executes a single request. A zero status code means no response was received.
func (c *Client) get(ctx context.Context, endpoint string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	slog.DebugContext(ctx, "Zoom API request completed",
		"url", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(startTime).String(),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, parseErrorResponse(resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// APIError is a non-200 answer from the Zoom API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("zoom API error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("zoom API error (status %d): %s", e.StatusCode, e.Message)
}

// parseErrorResponse attempts to parse a Zoom API error response
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &APIError{StatusCode: statusCode, Code: errResp.Code, Message: errResp.Message}
	}
	return &APIError{StatusCode: statusCode, Message: string(body)}
}
