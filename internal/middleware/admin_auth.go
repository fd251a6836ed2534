// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/constants"
)

// PrincipalParser validates a bearer token and returns its principal.
type PrincipalParser interface {
	ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error)
}

// AdminAuthMiddleware requires a valid bearer token and stores the principal in
// the request context.
func AdminAuthMiddleware(parser PrincipalParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := jwtmiddleware.AuthHeaderTokenExtractor(r)
			if err != nil || token == "" {
				slog.WarnContext(ctx, "missing or malformed bearer token", logging.ErrKey, err)
				writeUnauthorized(w)
				return
			}

			principal, err := parser.ParsePrincipal(ctx, token, slog.Default())
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, constants.PrincipalContextID, principal)
			ctx = logging.AppendCtx(ctx, slog.String("principal", principal))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the principal stored by AdminAuthMiddleware
func GetPrincipal(ctx context.Context) (string, bool) {
	principal, ok := ctx.Value(constants.PrincipalContextID).(string)
	return principal, ok && principal != ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "unauthorized"})
}
