// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package webhook verifies the authenticity of inbound Zoom webhook requests.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
)

const signaturePrefix = "v0="

// ZoomWebhookValidator handles validation of Zoom webhook signatures
type ZoomWebhookValidator struct {
	secretToken []byte
}

// NewZoomWebhookValidator creates a new Zoom webhook validator
func NewZoomWebhookValidator(secretToken string) *ZoomWebhookValidator {
	return &ZoomWebhookValidator{
		secretToken: []byte(secretToken),
	}
}

// Sign returns the signature Zoom sends for the given timestamp and raw body.
func (v *ZoomWebhookValidator) Sign(rawBody []byte, timestamp string) string {
	h := hmac.New(sha256.New, v.secretToken)
	h.Write([]byte("v0:"))
	h.Write([]byte(timestamp))
	h.Write([]byte(":"))
	h.Write(rawBody)
	return signaturePrefix + hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature matches the HMAC-SHA256 of "v0:{timestamp}:{rawBody}".
// Malformed or empty input is reported as a mismatch.
func (v *ZoomWebhookValidator) Verify(rawBody []byte, timestamp, signature string) bool {
	if len(v.secretToken) == 0 || timestamp == "" || signature == "" {
		return false
	}

	expected := v.Sign(rawBody, timestamp)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// ValidateSignature validates the Zoom webhook signature
func (v *ZoomWebhookValidator) ValidateSignature(body []byte, signature, timestamp string) error {
	if len(v.secretToken) == 0 {
		return domain.NewUnauthorizedError("webhook secret token not configured")
	}

	if signature == "" {
		return domain.NewUnauthorizedError("missing webhook signature")
	}

	if timestamp == "" {
		return domain.NewUnauthorizedError("missing webhook timestamp")
	}

	if !v.Verify(body, timestamp, signature) {
		return domain.NewUnauthorizedError("zoom webhook signature does not match expected signature")
	}

	return nil
}

// EncryptToken answers the endpoint.url_validation challenge: hex(HMAC-SHA256(secret, plainToken)).
func (v *ZoomWebhookValidator) EncryptToken(plainToken string) string {
	h := hmac.New(sha256.New, v.secretToken)
	h.Write([]byte(plainToken))
	return hex.EncodeToString(h.Sum(nil))
}
