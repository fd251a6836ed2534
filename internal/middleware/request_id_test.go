// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/constants"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("propagates the caller request id", func(t *testing.T) {
		var seen string
		handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		req.Header.Set(constants.RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", w.Header().Get(constants.RequestIDHeader))
	})

	t.Run("generates a request id", func(t *testing.T) {
		var seen string
		handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, w.Header().Get(constants.RequestIDHeader))
	})
}

func TestRequestLoggerMiddleware_CapturesStatus(t *testing.T) {
	var inner *responseWriter
	handler := RequestLoggerMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = w.(*responseWriter)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/reconciliations/abc", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, http.StatusAccepted, inner.statusCode)
	assert.Equal(t, 6, inner.written)
}

func TestRequestLoggerMiddleware_DefaultStatus(t *testing.T) {
	var inner *responseWriter
	handler := RequestLoggerMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = w.(*responseWriter)
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, inner.statusCode)
}

func TestResponseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, responseLevel(http.StatusOK))
	assert.Equal(t, slog.LevelInfo, responseLevel(http.StatusAccepted))
	assert.Equal(t, slog.LevelWarn, responseLevel(http.StatusUnauthorized))
	assert.Equal(t, slog.LevelError, responseLevel(http.StatusServiceUnavailable))
}
