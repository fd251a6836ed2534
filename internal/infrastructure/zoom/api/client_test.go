// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zoomTestServer serves the OAuth token endpoint and delegates the API paths to api.
type zoomTestServer struct {
	*httptest.Server
	tokenRequests atomic.Int32
	expiresIn     string
}

func newZoomTestServer(t *testing.T, expiresIn string, api http.HandlerFunc) *zoomTestServer {
	t.Helper()

	s := &zoomTestServer{expiresIn: expiresIn}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			s.tokenRequests.Add(1)
			if err := r.ParseForm(); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.PostForm.Get("grant_type") != "account_credentials" || r.PostForm.Get("account_id") != "test-account" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"test_token","token_type":"Bearer","expires_in":` + s.expiresIn + `}`))
			return
		}

		if r.Header.Get("Authorization") != "Bearer test_token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":124,"message":"Invalid access token."}`))
			return
		}
		api(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestClient(server *zoomTestServer, maxRetries int) *Client {
	return NewClient(Config{
		AccountID:         "test-account",
		ClientID:          "test-client-id",
		ClientSecret:      "test-secret",
		BaseURL:           server.URL,
		AuthURL:           server.URL + "/oauth/token",
		MaxRetries:        maxRetries,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        20 * time.Millisecond,
		BackoffMultiplier: 2.0,
	})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{AccountID: "a", ClientID: "b", ClientSecret: "c"})

	assert.Equal(t, BaseURL, client.config.BaseURL)
	assert.Equal(t, AuthURL, client.config.AuthURL)
	assert.Equal(t, DefaultClientTimeout, client.config.Timeout)
	assert.Equal(t, DefaultClientTimeout, client.httpClient.Timeout)
	assert.Equal(t, DefaultMaxRetries, client.config.MaxRetries)

	custom := NewClient(Config{BaseURL: "https://custom.api.zoom.us/v2", Timeout: 45 * time.Second})
	assert.Equal(t, "https://custom.api.zoom.us/v2", custom.config.BaseURL)
	assert.Equal(t, 45*time.Second, custom.httpClient.Timeout)
}

func TestParseErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		expected string
	}{
		{
			name:     "valid JSON error response",
			body:     []byte(`{"code": 3001, "message": "Meeting does not exist"}`),
			expected: "zoom API error (status 404, code 3001): Meeting does not exist",
		},
		{
			name:     "invalid JSON falls back to raw body",
			body:     []byte(`invalid json response`),
			expected: "zoom API error (status 404): invalid json response",
		},
		{
			name:     "empty message in JSON",
			body:     []byte(`{}`),
			expected: "zoom API error (status 404): {}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseErrorResponse(http.StatusNotFound, tt.body)
			assert.EqualError(t, err, tt.expected)

			var apiErr *APIError
			assert.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		expected   bool
	}{
		{name: "500 server error", statusCode: 500, expected: true},
		{name: "503 service unavailable", statusCode: 503, expected: true},
		{name: "429 rate limit", statusCode: 429, expected: true},
		{name: "400 bad request", statusCode: 400, expected: false},
		{name: "401 unauthorized", statusCode: 401, expected: false},
		{name: "404 not found", statusCode: 404, expected: false},
		{name: "network error", statusCode: 0, err: errors.New("connection refused"), expected: true},
		{name: "401 with api error", statusCode: 401, err: parseErrorResponse(401, []byte(`{"code":124,"message":"Invalid access token."}`)), expected: false},
		{name: "404 with api error", statusCode: 404, err: parseErrorResponse(404, []byte(`{"code":3001,"message":"Meeting does not exist."}`)), expected: false},
		{name: "503 with api error", statusCode: 503, err: parseErrorResponse(503, []byte(`{}`)), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shouldRetry(context.Background(), tt.statusCode, tt.err))
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, shouldRetry(ctx, 0, errors.New("connection refused")))
	})
}

func TestCalculateBackoff(t *testing.T) {
	client := NewClient(Config{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	})

	assert.Equal(t, 100*time.Millisecond, client.calculateBackoff(0))

	first := client.calculateBackoff(1)
	assert.GreaterOrEqual(t, first, 150*time.Millisecond)
	assert.LessOrEqual(t, first, 250*time.Millisecond)

	assert.LessOrEqual(t, client.calculateBackoff(10), client.config.MaxBackoff*125/100)
}

func TestDoGet_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := newZoomTestServer(t, "3600", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code": 500, "message": "Internal Server Error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	var out struct {
		Status string `json:"status"`
	}
	require.NoError(t, newTestClient(server, 3).doGet(context.Background(), "/test", &out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDoGet_DoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := newZoomTestServer(t, "3600", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code": 3001, "message": "Meeting does not exist"}`))
	})

	err := newTestClient(server, 3).doGet(context.Background(), "/test", &struct{}{})
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 3001, apiErr.Code)
}

func TestDoGet_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	server := newZoomTestServer(t, "3600", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := newTestClient(server, 2).doGet(context.Background(), "/test", &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed after 3 attempts")
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_TokenCaching(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}

	t.Run("token reused while far from expiry", func(t *testing.T) {
		server := newZoomTestServer(t, "3600", handler)
		client := newTestClient(server, 0)

		require.NoError(t, client.doGet(context.Background(), "/a", &struct{}{}))
		require.NoError(t, client.doGet(context.Background(), "/b", &struct{}{}))
		assert.Equal(t, int32(1), server.tokenRequests.Load())
	})

	t.Run("token refreshed inside the leeway window", func(t *testing.T) {
		// expires_in below the 60 second leeway means every request needs a new token
		server := newZoomTestServer(t, "30", handler)
		client := newTestClient(server, 0)

		require.NoError(t, client.doGet(context.Background(), "/a", &struct{}{}))
		require.NoError(t, client.doGet(context.Background(), "/b", &struct{}{}))
		assert.Equal(t, int32(2), server.tokenRequests.Load())
	})
}
