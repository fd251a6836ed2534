// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/attendance"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/ledger"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// ReconciliationArmer arms the delayed reconciliation of an ended meeting.
type ReconciliationArmer interface {
	Arm(ctx context.Context, req ArmRequest) (bool, error)
}

// WebhookRouter dispatches verified Zoom events to the ledger and the scheduler.
type WebhookRouter struct {
	ledger    *ledger.Ledger
	directory domain.WorkshopDirectory
	armer     ReconciliationArmer
	config    ServiceConfig
	now       func() time.Time
}

// NewWebhookRouter creates a router. directory may be nil, in which case every
// meeting falls back to the identifiers and duration carried by the webhook.
func NewWebhookRouter(l *ledger.Ledger, directory domain.WorkshopDirectory, armer ReconciliationArmer, config ServiceConfig) *WebhookRouter {
	return &WebhookRouter{
		ledger:    l,
		directory: directory,
		armer:     armer,
		config:    config.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ServiceReady checks if the router can process events
func (r *WebhookRouter) ServiceReady() bool {
	return r.ledger != nil && r.armer != nil
}

// workshopRef is the resolved workshop of a meeting instance.
type workshopRef struct {
	WorkshopID      string
	DurationMinutes int
	JoyCoins        int
}

// Route handles one verified event. Unknown event types are logged and ignored.
func (r *WebhookRouter) Route(ctx context.Context, eventType string, payload map[string]any) error {
	ctx = logging.AppendCtx(ctx, slog.String("event_type", eventType))

	switch eventType {
	case models.ZoomEventParticipantJoined, models.ZoomEventParticipantLeft:
		return r.handleParticipantEvent(ctx, eventType, payload)
	case models.ZoomEventMeetingEnded:
		return r.handleMeetingEnded(ctx, eventType, payload)
	default:
		slog.InfoContext(ctx, "ignoring unsupported zoom event")
		return nil
	}
}

func (r *WebhookRouter) decode(eventType string, payload map[string]any) (*models.ZoomMeetingPayload, error) {
	event := models.ZoomWebhookEvent{Event: eventType, Payload: payload}
	decoded, err := event.DecodeMeetingPayload()
	if err != nil {
		return nil, domain.NewValidationError("invalid webhook payload", err)
	}
	return decoded, nil
}

func (r *WebhookRouter) handleParticipantEvent(ctx context.Context, eventType string, payload map[string]any) error {
	decoded, err := r.decode(eventType, payload)
	if err != nil {
		return err
	}
	object := decoded.Object
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uuid", object.UUID))

	tag := attendance.ParseUserTag(object.Participant.UserName)
	if !tag.Tracked() {
		slog.DebugContext(ctx, "skipping participant without user tag", logging.ErrKey,
			domain.NewUnknownUserError("display name carries no user tag"))
		return nil
	}
	userID := *tag.InternalUserID
	ctx = logging.AppendCtx(ctx, slog.String("user_id", userID))

	ref, ok, err := r.resolveWorkshop(ctx, object)
	if err != nil || !ok {
		return err
	}

	if eventType == models.ZoomEventParticipantJoined {
		patch := models.ParticipantPatch{JoinTime: r.eventTime(object.Participant.JoinTime)}
		if _, err := r.ledger.Upsert(ctx, userID, ref.WorkshopID, patch); err != nil {
			return err
		}
	} else {
		// records start at the first join or the first report appearance
		patch := models.ParticipantPatch{LeaveTime: r.eventTime(object.Participant.LeaveTime)}
		_, err := r.ledger.Update(ctx, userID, ref.WorkshopID, patch)
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.InfoContext(ctx, "ignoring leave of participant without a join", "workshop_id", ref.WorkshopID)
			return nil
		}
		if err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "recorded participant event", "workshop_id", ref.WorkshopID)
	return nil
}

func (r *WebhookRouter) eventTime(t time.Time) *time.Time {
	if t.IsZero() {
		t = r.now()
	}
	t = t.UTC()
	return &t
}

func (r *WebhookRouter) handleMeetingEnded(ctx context.Context, eventType string, payload map[string]any) error {
	decoded, err := r.decode(eventType, payload)
	if err != nil {
		return err
	}
	object := decoded.Object
	if object.UUID == "" {
		return domain.NewValidationError("meeting.ended payload has no meeting uuid")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uuid", object.UUID))

	ref, ok, err := r.resolveWorkshop(ctx, object)
	if err != nil || !ok {
		return err
	}
	if ref.DurationMinutes <= 0 {
		slog.WarnContext(ctx, "meeting has no scheduled duration, skipping reconciliation",
			"workshop_id", ref.WorkshopID)
		return nil
	}

	armed, err := r.armer.Arm(ctx, ArmRequest{
		MeetingUUID:             object.UUID,
		MeetingID:               object.ID,
		WorkshopID:              ref.WorkshopID,
		WorkshopDurationMinutes: ref.DurationMinutes,
		JoyCoins:                ref.JoyCoins,
	})
	if err != nil {
		return err
	}
	if !armed {
		slog.InfoContext(ctx, "reconciliation already armed for meeting", "workshop_id", ref.WorkshopID)
	}
	return nil
}

// resolveWorkshop maps a meeting to its workshop. ok is false when the meeting
// should be ignored.
func (r *WebhookRouter) resolveWorkshop(ctx context.Context, object models.ZoomMeetingObject) (workshopRef, bool, error) {
	fallback := workshopRef{
		WorkshopID:      object.ID,
		DurationMinutes: object.Duration,
		JoyCoins:        r.config.DefaultJoyCoins,
	}
	if fallback.WorkshopID == "" {
		fallback.WorkshopID = object.UUID
	}

	if r.directory == nil || object.ID == "" {
		if r.config.RequireCatalog {
			slog.InfoContext(ctx, "ignoring meeting outside the workshop catalog")
			return workshopRef{}, false, nil
		}
		return fallback, true, nil
	}

	workshop, err := r.directory.GetByZoomMeetingID(ctx, object.ID)
	switch {
	case err == nil:
		ref := workshopRef{
			WorkshopID:      workshop.OccurrenceID(object.StartTime),
			DurationMinutes: workshop.DurationMinutes,
			JoyCoins:        workshop.JoyCoins,
		}
		if ref.JoyCoins <= 0 {
			ref.JoyCoins = r.config.DefaultJoyCoins
		}
		return ref, true, nil
	case domain.GetErrorType(err) == domain.ErrorTypeNotFound:
		if r.config.RequireCatalog {
			slog.InfoContext(ctx, "ignoring meeting outside the workshop catalog", "meeting_id", object.ID)
			return workshopRef{}, false, nil
		}
		return fallback, true, nil
	default:
		slog.ErrorContext(ctx, "failed to resolve workshop", "meeting_id", object.ID, logging.ErrKey, err)
		return workshopRef{}, false, err
	}
}
