// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Zoom webhook event types handled by the service.
const (
	ZoomEventURLValidation     = "endpoint.url_validation"
	ZoomEventParticipantJoined = "meeting.participant_joined"
	ZoomEventParticipantLeft   = "meeting.participant_left"
	ZoomEventMeetingEnded      = "meeting.ended"
)

// ZoomWebhookEvent is the envelope of every Zoom webhook request body.
type ZoomWebhookEvent struct {
	Event   string         `json:"event"`
	EventTS int64          `json:"event_ts"`
	Payload map[string]any `json:"payload"`
}

// ZoomURLValidationPayload is the payload of endpoint.url_validation challenges.
type ZoomURLValidationPayload struct {
	PlainToken string `json:"plainToken"`
}

// ZoomParticipant is the participant object of join/leave events.
type ZoomParticipant struct {
	UserID            string    `json:"user_id"`
	UserName          string    `json:"user_name"`
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	ParticipantUserID string    `json:"participant_user_id"`
	JoinTime          time.Time `json:"join_time"`
	LeaveTime         time.Time `json:"leave_time"`
	LeaveReason       string    `json:"leave_reason"`
}

// ZoomMeetingObject is the object shared by meeting and participant events.
type ZoomMeetingObject struct {
	UUID        string          `json:"uuid"`
	ID          string          `json:"id"` // numeric in some events, decoded weakly
	HostID      string          `json:"host_id"`
	Topic       string          `json:"topic"`
	Type        int             `json:"type"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Duration    int             `json:"duration"` // scheduled minutes
	Timezone    string          `json:"timezone"`
	Participant ZoomParticipant `json:"participant"`
}

// ZoomMeetingPayload is the payload of meeting.* and meeting.participant_* events.
type ZoomMeetingPayload struct {
	AccountID string            `json:"account_id"`
	Object    ZoomMeetingObject `json:"object"`
}

// DecodeMeetingPayload decodes the generic payload map into a typed meeting payload.
func (e *ZoomWebhookEvent) DecodeMeetingPayload() (*ZoomMeetingPayload, error) {
	var payload ZoomMeetingPayload
	if err := decodePayload(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", e.Event, err)
	}
	if payload.Object.UUID == "" && payload.Object.ID == "" {
		return nil, fmt.Errorf("%s payload has no meeting identifiers", e.Event)
	}
	return &payload, nil
}

// DecodeURLValidationPayload decodes the payload of an endpoint.url_validation event.
func (e *ZoomWebhookEvent) DecodeURLValidationPayload() (*ZoomURLValidationPayload, error) {
	var payload ZoomURLValidationPayload
	if err := decodePayload(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode url validation payload: %w", err)
	}
	if payload.PlainToken == "" {
		return nil, fmt.Errorf("missing plainToken in validation payload")
	}
	return &payload, nil
}

func decodePayload(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
