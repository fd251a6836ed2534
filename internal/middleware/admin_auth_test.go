// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeParser struct {
	tokens map[string]string
}

func (f fakeParser) ParsePrincipal(_ context.Context, token string, _ *slog.Logger) (string, error) {
	principal, ok := f.tokens[token]
	if !ok {
		return "", errors.New("invalid token")
	}
	return principal, nil
}

func TestAdminAuthMiddleware(t *testing.T) {
	parser := fakeParser{tokens: map[string]string{"good-token": "operator@example.org"}}

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantPrincipal string
	}{
		{name: "valid token", authorization: "Bearer good-token", wantStatus: http.StatusOK, wantPrincipal: "operator@example.org"},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", authorization: "Basic Zm9vOmJhcg==", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", authorization: "Bearer bad-token", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var principal string
			handler := AdminAuthMiddleware(parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal, _ = GetPrincipal(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin/reconciliations/abc", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantPrincipal, principal)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestGetPrincipal_Missing(t *testing.T) {
	_, ok := GetPrincipal(context.Background())
	assert.False(t, ok)
}
