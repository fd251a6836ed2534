// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/utils"
)

// EventRouter handles verified webhook events.
type EventRouter interface {
	Route(ctx context.Context, eventType string, payload map[string]any) error
}

// ZoomWebhookService handles Zoom webhook event processing
type ZoomWebhookService struct {
	webhookValidator domain.WebhookValidator
	webhookLogs      domain.WebhookLogRepository
	router           EventRouter
	metrics          *attendanceMetrics
	now              func() time.Time
}

// WebhookRequest represents the webhook processing request
type WebhookRequest struct {
	Signature string
	Timestamp string
	RawBody   []byte
}

// WebhookResponse represents the webhook processing response
type WebhookResponse struct {
	Event          string
	PlainToken     *string
	EncryptedToken *string
}

// NewZoomWebhookService creates a new ZoomWebhookService
func NewZoomWebhookService(
	webhookValidator domain.WebhookValidator,
	webhookLogs domain.WebhookLogRepository,
	router EventRouter,
) *ZoomWebhookService {
	return &ZoomWebhookService{
		webhookValidator: webhookValidator,
		webhookLogs:      webhookLogs,
		router:           router,
		metrics:          newAttendanceMetrics(),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// ServiceReady checks if the service is ready to process requests
func (s *ZoomWebhookService) ServiceReady() bool {
	return s.webhookValidator != nil && s.webhookLogs != nil && s.router != nil
}

// ProcessWebhookEvent verifies and handles one Zoom webhook. Once the signature
// passes, event handling failures are logged and the event is still acknowledged.
// The returned error is unauthorized for a bad signature, internal for a body
// that cannot be parsed and unavailable when the service is not configured.
func (s *ZoomWebhookService) ProcessWebhookEvent(ctx context.Context, req WebhookRequest) (*WebhookResponse, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "zoom webhook received but webhook validation is not configured")
		return nil, domain.NewUnavailableError("webhook processing is not configured")
	}
	if req.Signature == "" || req.Timestamp == "" {
		return nil, domain.NewUnauthorizedError("missing signature headers")
	}
	if err := s.webhookValidator.ValidateSignature(req.RawBody, req.Signature, req.Timestamp); err != nil {
		slog.WarnContext(ctx, "rejected zoom webhook", logging.ErrKey, err)
		if domain.GetErrorType(err) == domain.ErrorTypeUnauthorized {
			return nil, err
		}
		return nil, domain.NewUnauthorizedError("invalid webhook signature", err)
	}

	var event models.ZoomWebhookEvent
	if err := json.Unmarshal(req.RawBody, &event); err != nil {
		slog.ErrorContext(ctx, "failed to parse zoom webhook body", logging.ErrKey, err)
		return nil, domain.NewInternalError("failed to parse webhook body", err)
	}
	ctx = logging.AppendCtx(ctx, slog.String("event_type", event.Event))
	s.metrics.webhookEvent(ctx, event.Event)

	if event.Event == models.ZoomEventURLValidation {
		return s.handleEndpointValidation(ctx, &event)
	}

	s.appendLog(ctx, &event, req.RawBody)

	if err := s.router.Route(ctx, event.Event, event.Payload); err != nil {
		slog.ErrorContext(ctx, "failed to handle zoom webhook event", logging.ErrKey, err)
	}
	return &WebhookResponse{Event: event.Event}, nil
}

// handleEndpointValidation answers the endpoint.url_validation challenge
func (s *ZoomWebhookService) handleEndpointValidation(ctx context.Context, event *models.ZoomWebhookEvent) (*WebhookResponse, error) {
	payload, err := event.DecodeURLValidationPayload()
	if err != nil {
		slog.ErrorContext(ctx, "invalid url validation payload", logging.ErrKey, err)
		return nil, domain.NewValidationError("invalid validation payload", err)
	}

	slog.InfoContext(ctx, "zoom webhook endpoint validation completed successfully")
	return &WebhookResponse{
		Event:          event.Event,
		PlainToken:     utils.StringPtr(payload.PlainToken),
		EncryptedToken: utils.StringPtr(s.webhookValidator.EncryptToken(payload.PlainToken)),
	}, nil
}

func (s *ZoomWebhookService) appendLog(ctx context.Context, event *models.ZoomWebhookEvent, rawBody []byte) {
	entry := &models.RawWebhookLog{
		ID:         uuid.NewString(),
		EventType:  event.Event,
		Payload:    append([]byte(nil), rawBody...),
		ReceivedAt: s.now(),
	}
	if err := s.webhookLogs.Append(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to append raw webhook log", "log_id", entry.ID, logging.ErrKey, err)
	}
}
