// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package auth validates the bearer tokens of the admin API.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

const (
	defaultIssuer   = "heimdall"
	defaultAudience = "lfx-v2-workshop-attendance-service"
	defaultJWKSURL  = "http://heimdall:4457/.well-known/jwks"

	jwksCacheTTL = 5 * time.Minute
	allowedSkew  = 5 * time.Second
)

// HeimdallClaims contains the custom claims minted by Heimdall.
type HeimdallClaims struct {
	Principal string `json:"principal"`
	Email     string `json:"email,omitempty"`
}

// Validate implements validator.CustomClaims.
func (c *HeimdallClaims) Validate(_ context.Context) error {
	if c.Principal == "" {
		return errors.New("principal must be provided")
	}
	return nil
}

// JWTAuthConfig holds the JWT validation settings.
type JWTAuthConfig struct {
	JWKSURL  string
	Audience string
	// MockLocalPrincipal skips validation and returns this principal. Local development only.
	MockLocalPrincipal string
}

// JWTAuth validates Heimdall-issued JWTs.
type JWTAuth struct {
	validator *validator.Validator
	config    JWTAuthConfig
}

// NewJWTAuth creates a JWT validator backed by a caching JWKS provider.
func NewJWTAuth(config JWTAuthConfig) (*JWTAuth, error) {
	jwksURLRaw := config.JWKSURL
	if jwksURLRaw == "" {
		jwksURLRaw = defaultJWKSURL
	}
	jwksURL, err := url.Parse(jwksURLRaw)
	if err != nil {
		return nil, err
	}

	audience := config.Audience
	if audience == "" {
		audience = defaultAudience
	}

	issuer, err := url.Parse(defaultIssuer)
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuer, jwksCacheTTL, jwks.WithCustomJWKSURI(jwksURL))

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.PS256,
		issuer.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &HeimdallClaims{}
		}),
		validator.WithAllowedClockSkew(allowedSkew),
	)
	if err != nil {
		return nil, err
	}

	if config.MockLocalPrincipal != "" {
		slog.Warn("JWT validation disabled, using mock local principal", "principal", config.MockLocalPrincipal)
	}

	return &JWTAuth{
		validator: jwtValidator,
		config:    config,
	}, nil
}

// ParsePrincipal validates the token and returns the Heimdall principal.
func (j *JWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	if j.config.MockLocalPrincipal != "" {
		logger.DebugContext(ctx, "JWT validation disabled, returning mock principal", "principal", j.config.MockLocalPrincipal)
		return j.config.MockLocalPrincipal, nil
	}

	if j.validator == nil {
		return "", errors.New("JWT validator is not set up")
	}

	parsed, err := j.validator.ValidateToken(ctx, token)
	if err != nil {
		logger.WarnContext(ctx, "JWT validation failed", "error", err)
		return "", err
	}

	claims, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		return "", errors.New("failed to get validated authorization claims")
	}

	customClaims, ok := claims.CustomClaims.(*HeimdallClaims)
	if !ok {
		return "", errors.New("failed to get custom authorization claims")
	}

	return customClaims.Principal, nil
}
