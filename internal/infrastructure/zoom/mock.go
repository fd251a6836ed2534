// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package zoom

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// StaticReportFetcher serves reports registered in memory. It stands in for
// Zoom in local development where no API credentials are configured.
type StaticReportFetcher struct {
	mu      sync.RWMutex
	reports map[string][]models.ParticipantReport
}

var _ domain.ReportFetcher = (*StaticReportFetcher)(nil)

// NewStaticReportFetcher creates an empty static report fetcher
func NewStaticReportFetcher() *StaticReportFetcher {
	return &StaticReportFetcher{reports: make(map[string][]models.ParticipantReport)}
}

// SetReport registers the report returned for a meeting instance
func (f *StaticReportFetcher) SetReport(meetingUUID string, rows []models.ParticipantReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[meetingUUID] = append([]models.ParticipantReport(nil), rows...)
}

// GetParticipantsReport returns the registered report, or a retryable error when none exists yet
func (f *StaticReportFetcher) GetParticipantsReport(ctx context.Context, meetingUUID string) ([]models.ParticipantReport, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rows, ok := f.reports[meetingUUID]
	if !ok {
		slog.DebugContext(ctx, "no static report registered", "meeting_uuid", meetingUUID)
		return nil, domain.NewExternalServiceError("participants report not available yet")
	}
	return append([]models.ParticipantReport(nil), rows...), nil
}
