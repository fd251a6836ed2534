// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/zoom/webhook"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/constants"
)

// scenario drives webhooks through the full pipeline of a 60 minute workshop.
type scenario struct {
	*harness
	webhooks *ZoomWebhookService
	logs     *store.InMemoryWebhookLogRepository
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	h := newHarness(t, DefaultServiceConfig())
	h.addWorkshop(t, models.Workshop{ID: "ws-1", ZoomMeetingID: testMeetingID, DurationMinutes: 60})
	logs := store.NewInMemoryWebhookLogRepository()
	return &scenario{
		harness:  h,
		webhooks: NewZoomWebhookService(webhook.NewZoomWebhookValidator(testSecret), logs, h.router),
		logs:     logs,
	}
}

func (s *scenario) send(t *testing.T, event string, payload map[string]any) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"event": event, "event_ts": s.clock.Now().UnixMilli(), "payload": payload})
	require.NoError(t, err)
	resp, err := s.webhooks.ProcessWebhookEvent(context.Background(), signedRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, event, resp.Event)
}

func (s *scenario) endMeetingAndReconcile(t *testing.T) int {
	t.Helper()
	s.send(t, models.ZoomEventMeetingEnded, meetingObject(nil))
	s.clock.Advance(constants.ReconciliationDelay)
	n, err := s.scheduler.ProcessDue(context.Background())
	require.NoError(t, err)
	return n
}

func TestScenario_QualifyingAttendeeEarnsCertificateAndReward(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	start := time.Date(2026, 10, 7, 15, 0, 0, 0, time.UTC)

	s.send(t, models.ZoomEventParticipantJoined, participantPayload("Jane Doe__UID_42", "join_time", start))
	s.send(t, models.ZoomEventParticipantLeft, participantPayload("Jane Doe__UID_42", "leave_time", start.Add(50*time.Minute)))
	s.reports.SetReport(testMeetingUUID, []models.ParticipantReport{reportRow("Jane Doe__UID_42", 50)})

	assert.Equal(t, 1, s.endMeetingAndReconcile(t))

	record, err := s.ledger.Find(ctx, "42", "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 83, record.AttendancePercentage)
	assert.True(t, record.CertificateUnlocked)
	assert.True(t, record.JoyCoinsAwarded)
	assert.Equal(t, models.StatusCompleted, record.Status)
	assert.Equal(t, 20, s.wallet.Balance("42"))
	assert.Len(t, s.wallet.Transactions(), 1)
	assert.Len(t, s.logs.Entries(), 3)
}

func TestScenario_ShortAttendanceEarnsNothing(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	s.reports.SetReport(testMeetingUUID, []models.ParticipantReport{reportRow("Sam__UID_7", 20)})

	assert.Equal(t, 1, s.endMeetingAndReconcile(t))

	record, err := s.ledger.Find(ctx, "7", "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 33, record.AttendancePercentage)
	assert.False(t, record.CertificateUnlocked)
	assert.False(t, record.JoyCoinsAwarded)
	assert.Empty(t, s.wallet.Transactions())
}

func TestScenario_DuplicateMeetingEndedReconcilesOnce(t *testing.T) {
	s := newScenario(t)
	s.reports.SetReport(testMeetingUUID, []models.ParticipantReport{reportRow("Jane__UID_42", 55)})

	s.send(t, models.ZoomEventMeetingEnded, meetingObject(nil))
	s.clock.Advance(5 * time.Minute)
	s.send(t, models.ZoomEventMeetingEnded, meetingObject(nil))

	s.clock.Advance(constants.ReconciliationDelay)
	n, err := s.scheduler.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s.events.Completed(), 1)
	assert.Len(t, s.wallet.Transactions(), 1)
}

func TestScenario_UntaggedJoinDoesNotTouchLedger(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)

	s.send(t, models.ZoomEventParticipantJoined, participantPayload("Anonymous Guest", "join_time", s.clock.Now()))

	records, err := s.ledger.ListByWorkshop(ctx, "ws-1")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, s.logs.Entries(), 1, "the raw webhook is still logged")
}

func TestScenario_RetriggeredReconciliationRewardsOnce(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	s.reports.SetReport(testMeetingUUID, []models.ParticipantReport{reportRow("Jane__UID_42", 50)})
	assert.Equal(t, 1, s.endMeetingAndReconcile(t))

	_, err := s.scheduler.Retrigger(ctx, testMeetingUUID)
	require.NoError(t, err)
	n, err := s.scheduler.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Len(t, s.wallet.Transactions(), 1)
	assert.Equal(t, 20, s.wallet.Balance("42"))
	assert.Len(t, s.events.Unlocked(), 1)
	assert.Len(t, s.events.Completed(), 2)
}

func TestScenario_LateReportIsRetried(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)

	assert.Equal(t, 1, s.endMeetingAndReconcile(t))
	job, err := s.scheduler.Get(ctx, testMeetingUUID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusArmed, job.Status)

	s.reports.SetReport(testMeetingUUID, []models.ParticipantReport{reportRow("Jane__UID_42", 60)})
	s.clock.Advance(constants.ReconciliationRetryBaseDelay)
	n, err := s.scheduler.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err = s.scheduler.Get(ctx, testMeetingUUID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, job.Status)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, 20, s.wallet.Balance("42"))
}
