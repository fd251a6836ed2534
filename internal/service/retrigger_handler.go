// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// Retriggerer re-arms the reconciliation of a meeting.
type Retriggerer interface {
	Retrigger(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, error)
}

// RetriggerHandler consumes operator re-trigger requests from NATS.
type RetriggerHandler struct {
	scheduler Retriggerer
}

var _ domain.MessageHandler = (*RetriggerHandler)(nil)

// NewRetriggerHandler creates a RetriggerHandler
func NewRetriggerHandler(scheduler Retriggerer) *RetriggerHandler {
	return &RetriggerHandler{scheduler: scheduler}
}

// HandlerReady checks if the handler can process messages
func (h *RetriggerHandler) HandlerReady() bool {
	return h.scheduler != nil
}

// HandleMessage re-triggers the meeting named in the message and replies with the
// job state when the sender asked for a reply.
func (h *RetriggerHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	ctx = logging.AppendCtx(ctx, slog.String("subject", msg.Subject()))

	var reply models.ReconciliationRetriggerReply
	var req models.ReconciliationRetriggerRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal re-trigger request", logging.ErrKey, err)
		reply.Error = "invalid request"
	} else {
		job, err := h.scheduler.Retrigger(ctx, req.MeetingUUID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to re-trigger reconciliation", "meeting_uuid", req.MeetingUUID, logging.ErrKey, err)
			reply.Error = err.Error()
		}
		reply.Job = job
	}

	if !msg.HasReply() {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal re-trigger reply", logging.ErrKey, err)
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.ErrorContext(ctx, "failed to respond to re-trigger request", logging.ErrKey, err)
	}
}
