// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/attendance"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/ledger"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/utils"
)

const tracerName = "github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/service"

// Reconciler applies a meeting's participants report to the ledger and issues
// the certificate and reward side effects.
type Reconciler struct {
	ledger  *ledger.Ledger
	reports domain.ReportFetcher
	rewards domain.RewardIssuer
	events  domain.AttendanceEventSender
	config  ServiceConfig
	metrics *attendanceMetrics
	now     func() time.Time
}

// NewReconciler creates a Reconciler
func NewReconciler(
	l *ledger.Ledger,
	reports domain.ReportFetcher,
	rewards domain.RewardIssuer,
	events domain.AttendanceEventSender,
	config ServiceConfig,
) *Reconciler {
	return &Reconciler{
		ledger:  l,
		reports: reports,
		rewards: rewards,
		events:  events,
		config:  config.withDefaults(),
		metrics: newAttendanceMetrics(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ServiceReady checks if the reconciler has all its collaborators
func (r *Reconciler) ServiceReady() bool {
	return r.ledger != nil && r.reports != nil && r.rewards != nil && r.events != nil
}

// attendee is the aggregated report of one tracked user.
type attendee struct {
	UserID          string
	DurationSeconds int
	Sessions        int
}

// aggregateReport sums the report sessions per internal user id. Rows without a
// user tag are counted as skipped.
func aggregateReport(rows []models.ParticipantReport) ([]attendee, int) {
	byUser := make(map[string]*attendee)
	skipped := 0
	for _, row := range rows {
		tag := attendance.ParseUserTag(row.Name)
		if !tag.Tracked() {
			skipped++
			continue
		}
		a, ok := byUser[*tag.InternalUserID]
		if !ok {
			a = &attendee{UserID: *tag.InternalUserID}
			byUser[a.UserID] = a
		}
		a.DurationSeconds += max(row.DurationSeconds, 0)
		a.Sessions++
	}

	attendees := make([]attendee, 0, len(byUser))
	for _, a := range byUser {
		attendees = append(attendees, *a)
	}
	sort.Slice(attendees, func(i, j int) bool { return attendees[i].UserID < attendees[j].UserID })
	return attendees, skipped
}

// participantOutcome is the result of reconciling one attendee.
type participantOutcome struct {
	unlocked bool
	rewarded bool
}

// Reconcile runs one reconciliation pass for the job. The returned error is
// retryable when the report could not be fetched or any participant failed with a
// retryable error. Participants that succeeded are not redone on retry since every
// step checks the current record first.
func (r *Reconciler) Reconcile(ctx context.Context, job *models.ReconciliationJob) (*models.ReconciliationCompletedMessage, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "reconciler.Reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("meeting_uuid", job.MeetingUUID),
		attribute.String("workshop_id", job.WorkshopID),
	)
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uuid", job.MeetingUUID))
	ctx = logging.AppendCtx(ctx, slog.String("workshop_id", job.WorkshopID))

	if job.WorkshopDurationMinutes <= 0 {
		return nil, domain.NewValidationError("reconciliation job has no workshop duration")
	}

	rows, err := r.reports.GetParticipantsReport(ctx, job.MeetingUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "report fetch failed")
		slog.ErrorContext(ctx, "failed to fetch participants report", logging.ErrKey, err)
		return nil, err
	}

	attendees, skipped := aggregateReport(rows)
	slog.InfoContext(ctx, "reconciling participants report",
		"rows", len(rows),
		"participants", len(attendees),
		"skipped", skipped)

	outcomes := make([]participantOutcome, len(attendees))
	tasks := make([]func(context.Context) error, len(attendees))
	for i, a := range attendees {
		tasks[i] = func(ctx context.Context) error {
			outcome, err := r.reconcileParticipant(ctx, job, a)
			outcomes[i] = outcome
			return err
		}
	}
	errs := concurrent.NewWorkerPool(r.config.ReconcileWorkers).RunAll(ctx, tasks...)

	summary := &models.ReconciliationCompletedMessage{
		MeetingUUID:  job.MeetingUUID,
		WorkshopID:   job.WorkshopID,
		Participants: len(attendees),
		Skipped:      skipped,
		CompletedAt:  r.now(),
	}
	for _, o := range outcomes {
		if o.unlocked {
			summary.CertificatesUnlocked++
		}
		if o.rewarded {
			summary.RewardsIssued++
		}
	}

	failed := concurrent.Failed(errs)
	summary.Failures = len(failed)
	if err := r.events.SendReconciliationCompleted(ctx, *summary); err != nil {
		slog.WarnContext(ctx, "failed to publish reconciliation summary", logging.ErrKey, err)
	}

	if len(failed) == 0 {
		return summary, nil
	}

	span.SetStatus(codes.Error, "participant reconciliation failed")
	for _, err := range failed {
		if domain.IsRetryable(err) {
			return summary, domain.NewExternalServiceError(
				fmt.Sprintf("%d of %d participants failed", len(failed), len(attendees)),
				errors.Join(failed...))
		}
	}
	// permanent participant failures do not block the rest of the meeting
	slog.ErrorContext(ctx, "participants failed permanently during reconciliation",
		"failures", len(failed),
		logging.ErrKey, errors.Join(failed...))
	return summary, nil
}

func (r *Reconciler) reconcileParticipant(ctx context.Context, job *models.ReconciliationJob, a attendee) (participantOutcome, error) {
	var outcome participantOutcome
	ctx = logging.AppendCtx(ctx, slog.String("user_id", a.UserID))

	minutes := attendance.AttendedMinutes(a.DurationSeconds)
	pct := attendance.Percentage(minutes, job.WorkshopDurationMinutes)

	patch := models.ParticipantPatch{
		TotalDurationMinutes: &minutes,
		AttendancePercentage: &pct,
	}
	if minutes > 0 {
		patch.Status = utils.Ptr(models.StatusAttended)
	}
	if attendance.QualifiesForCertificate(pct) {
		patch.CertificateUnlocked = utils.BoolPtr(true)
		patch.Status = utils.Ptr(models.StatusCompleted)
	}

	change, err := r.ledger.Apply(ctx, a.UserID, job.WorkshopID, patch)
	if err != nil {
		return outcome, err
	}

	if change.CertificateUnlocked() {
		outcome.unlocked = true
		r.metrics.certificatesUnlocked.Add(ctx, 1)
		slog.InfoContext(ctx, "certificate unlocked", "attendance_percentage", change.After.AttendancePercentage)
		err := r.events.SendCertificateUnlocked(ctx, models.CertificateUnlockedMessage{
			UserID:               a.UserID,
			WorkshopID:           job.WorkshopID,
			Role:                 string(change.After.Role),
			AttendancePercentage: change.After.AttendancePercentage,
			TotalDurationMinutes: change.After.TotalDurationMinutes,
			UnlockedAt:           change.After.UpdatedAt,
		})
		if err != nil {
			// the flag is the source of truth; the certificate issuer can backfill
			slog.WarnContext(ctx, "failed to publish certificate unlocked event", logging.ErrKey, err)
		}
	}

	if !change.After.CertificateUnlocked || change.After.JoyCoinsAwarded {
		return outcome, nil
	}

	issued, _, err := r.ledger.AwardOnce(ctx, a.UserID, job.WorkshopID, func(ctx context.Context, record *models.ParticipantRecord) error {
		return r.issueReward(ctx, job, record)
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to award joy coins", logging.ErrKey, err)
		return outcome, err
	}
	if issued {
		outcome.rewarded = true
		r.metrics.rewardsIssued.Add(ctx, 1)
	}
	return outcome, nil
}

func (r *Reconciler) issueReward(ctx context.Context, job *models.ReconciliationJob, record *models.ParticipantRecord) error {
	amount := job.JoyCoins
	if amount <= 0 {
		amount = r.config.DefaultJoyCoins
	}
	txID := utils.RewardTransactionID(record.UserID, record.WorkshopID)
	receipt, err := r.rewards.IssueReward(ctx, models.RewardRequest{
		TransactionID: txID,
		Reference:     utils.ShortReference(txID),
		UserID:        record.UserID,
		WorkshopID:    record.WorkshopID,
		Amount:        amount,
		Reason:        models.RewardReasonCertificate,
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "joy coins issued",
		"amount", amount,
		"transaction_id", receipt.TransactionID,
		"duplicate", receipt.Duplicate)
	return nil
}
