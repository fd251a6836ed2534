// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// reportPageSize is the maximum page size accepted by the report endpoints.
const reportPageSize = 300

// ReportParticipant is one session row of the past meeting participants report.
// A user who rejoins appears once per session.
type ReportParticipant struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	Name              string `json:"name"`
	UserEmail         string `json:"user_email"`
	JoinTime          string `json:"join_time"`
	LeaveTime         string `json:"leave_time"`
	Duration          int    `json:"duration"`
	Status            string `json:"status"`
	ParticipantUserID string `json:"participant_user_id,omitempty"`
}

// ReportParticipantsResponse represents one page of the participants report
type ReportParticipantsResponse struct {
	PageCount     int                 `json:"page_count"`
	PageSize      int                 `json:"page_size"`
	TotalRecords  int                 `json:"total_records"`
	NextPageToken string              `json:"next_page_token"`
	Participants  []ReportParticipant `json:"participants"`
}

// EncodeMeetingUUID escapes a meeting UUID for use as a path segment. Zoom
// requires a double encoding when the UUID starts with "/" or contains "//".
func EncodeMeetingUUID(meetingUUID string) string {
	escaped := url.PathEscape(meetingUUID)
	if strings.HasPrefix(meetingUUID, "/") || strings.Contains(meetingUUID, "//") {
		return url.PathEscape(escaped)
	}
	return escaped
}

// GetPastMeetingParticipants retrieves every page of the participants report of a
// finished meeting instance.
func (c *Client) GetPastMeetingParticipants(ctx context.Context, meetingUUID string) ([]ReportParticipant, error) {
	ctx = logging.AppendCtx(ctx, slog.String("zoom_operation", "get_past_meeting_participants"))
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uuid", meetingUUID))

	basePath := "/report/meetings/" + EncodeMeetingUUID(meetingUUID) + "/participants"

	var participants []ReportParticipant
	nextPageToken := ""
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page_size", strconv.Itoa(reportPageSize))
		if nextPageToken != "" {
			query.Set("next_page_token", nextPageToken)
		}

		var pageResp ReportParticipantsResponse
		if err := c.doGet(ctx, basePath+"?"+query.Encode(), &pageResp); err != nil {
			slog.ErrorContext(ctx, "failed to get participants report", "page", page, logging.ErrKey, err)
			return nil, err
		}

		participants = append(participants, pageResp.Participants...)
		nextPageToken = pageResp.NextPageToken
		if nextPageToken == "" {
			break
		}
	}

	slog.InfoContext(ctx, "retrieved Zoom participants report", "row_count", len(participants))

	return participants, nil
}
