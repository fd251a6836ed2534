// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/constants"
)

// WebhookProcessor verifies and handles a raw Zoom webhook.
type WebhookProcessor interface {
	ProcessWebhookEvent(ctx context.Context, req service.WebhookRequest) (*service.WebhookResponse, error)
}

// ZoomWebhookHandler serves the Zoom webhook endpoint.
type ZoomWebhookHandler struct {
	processor WebhookProcessor
}

// NewZoomWebhookHandler creates a new ZoomWebhookHandler.
func NewZoomWebhookHandler(processor WebhookProcessor) *ZoomWebhookHandler {
	return &ZoomWebhookHandler{processor: processor}
}

// ZoomWebhookResponse acknowledges a handled event.
type ZoomWebhookResponse struct {
	Success bool   `json:"success"`
	Event   string `json:"event"`
}

// ZoomValidationResponse answers the endpoint.url_validation challenge.
type ZoomValidationResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// ServeHTTP handles POST /webhooks/zoom. The raw body must have been captured by
// middleware.WebhookBodyCaptureMiddleware.
func (h *ZoomWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawBody, ok := middleware.GetRawBodyFromContext(r.Context())
	if !ok {
		writeError(w, r, domain.NewValidationError("missing webhook body"))
		return
	}

	resp, err := h.processor.ProcessWebhookEvent(r.Context(), service.WebhookRequest{
		Signature: r.Header.Get(constants.ZoomSignatureHeader),
		Timestamp: r.Header.Get(constants.ZoomTimestampHeader),
		RawBody:   rawBody,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if resp.PlainToken != nil && resp.EncryptedToken != nil {
		writeJSON(w, http.StatusOK, ZoomValidationResponse{
			PlainToken:     *resp.PlainToken,
			EncryptedToken: *resp.EncryptedToken,
		})
		return
	}
	writeJSON(w, http.StatusOK, ZoomWebhookResponse{Success: true, Event: resp.Event})
}
