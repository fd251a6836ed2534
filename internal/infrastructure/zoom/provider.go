// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package zoom adapts the Zoom API client to the attendance domain.
package zoom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/zoom/api"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// DefaultReportTimeout bounds a whole report fetch, pagination and retries included.
const DefaultReportTimeout = 30 * time.Second

// ReportProvider implements domain.ReportFetcher on top of the Zoom report API
type ReportProvider struct {
	client  api.ReportsAPI
	timeout time.Duration
}

// Ensure ReportProvider implements domain.ReportFetcher
var _ domain.ReportFetcher = (*ReportProvider)(nil)

// NewReportProvider creates a report fetcher. A non-positive timeout uses DefaultReportTimeout.
func NewReportProvider(client api.ReportsAPI, timeout time.Duration) *ReportProvider {
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	return &ReportProvider{client: client, timeout: timeout}
}

// GetParticipantsReport fetches the participants report of a finished meeting instance.
// All failures, timeouts included, are returned as external service errors.
func (p *ReportProvider) GetParticipantsReport(ctx context.Context, meetingUUID string) ([]models.ParticipantReport, error) {
	if meetingUUID == "" {
		return nil, domain.NewValidationError("meeting UUID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.client.GetPastMeetingParticipants(ctx, meetingUUID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewExternalServiceError(fmt.Sprintf("zoom participants report timed out after %s", p.timeout), err)
		}
		return nil, domain.NewExternalServiceError("failed to fetch zoom participants report", err)
	}

	reports := make([]models.ParticipantReport, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, models.ParticipantReport{
			Name:            row.Name,
			UserEmail:       row.UserEmail,
			JoinTime:        parseReportTime(ctx, row.JoinTime),
			LeaveTime:       parseReportTime(ctx, row.LeaveTime),
			DurationSeconds: row.Duration,
		})
	}

	return reports, nil
}

func parseReportTime(ctx context.Context, value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		slog.WarnContext(ctx, "unparseable time in zoom report", "value", value, logging.ErrKey, err)
		return time.Time{}
	}
	return t
}
