// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Constants for the HTTP request headers
const (
	// AuthorizationHeader is the header name for the authorization
	AuthorizationHeader string = "authorization"

	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// ZoomSignatureHeader carries the v0= HMAC signature of a Zoom webhook
	ZoomSignatureHeader string = "x-zm-signature"

	// ZoomTimestampHeader carries the request timestamp signed into a Zoom webhook
	ZoomTimestampHeader string = "x-zm-request-timestamp"
)

// HTTP routes that need special handling in middleware
const (
	// ZoomWebhookPath is the route receiving signed Zoom webhooks
	ZoomWebhookPath string = "/webhooks/zoom"

	// AdminPathPrefix prefixes the operator endpoints protected by JWT authentication
	AdminPathPrefix string = "/admin"

	// MaxWebhookBodyBytes bounds the webhook body read before signature verification
	MaxWebhookBodyBytes int64 = 1 << 20
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"

// contextPrincipal is the type for the principal context key
type contextPrincipal string

// PrincipalContextID is the context ID for the authenticated admin principal
const PrincipalContextID contextPrincipal = "principal"
