// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/constants"
)

// ArmRequest identifies the meeting instance to reconcile.
type ArmRequest struct {
	MeetingUUID             string
	MeetingID               string
	WorkshopID              string
	WorkshopDurationMinutes int
	JoyCoins                int
}

func (r ArmRequest) validate() error {
	if r.MeetingUUID == "" {
		return domain.NewValidationError("meeting uuid is required")
	}
	if r.WorkshopID == "" {
		return domain.NewValidationError("workshop id is required")
	}
	if r.WorkshopDurationMinutes <= 0 {
		return domain.NewValidationError("workshop duration must be positive")
	}
	return nil
}

// MeetingReconciler reconciles one meeting against its participants report.
type MeetingReconciler interface {
	Reconcile(ctx context.Context, job *models.ReconciliationJob) (*models.ReconciliationCompletedMessage, error)
}

// RewardScheduler owns the durable reconciliation job of every ended meeting.
// Jobs move armed -> reconciling -> done, back to armed with a backoff on a
// retryable failure, or to failed once the attempts are exhausted.
type RewardScheduler struct {
	jobs       domain.ReconciliationJobRepository
	reconciler MeetingReconciler
	config     ServiceConfig
	metrics    *attendanceMetrics
	now        func() time.Time
	// wake shortens the poll wait after a re-trigger
	wake chan struct{}
}

// NewRewardScheduler creates a scheduler
func NewRewardScheduler(jobs domain.ReconciliationJobRepository, reconciler MeetingReconciler, config ServiceConfig) *RewardScheduler {
	return &RewardScheduler{
		jobs:       jobs,
		reconciler: reconciler,
		config:     config.withDefaults(),
		metrics:    newAttendanceMetrics(),
		now:        func() time.Time { return time.Now().UTC() },
		wake:       make(chan struct{}, 1),
	}
}

// ServiceReady checks if the scheduler can process jobs
func (s *RewardScheduler) ServiceReady() bool {
	return s.jobs != nil && s.reconciler != nil
}

// Arm schedules the reconciliation of a meeting after the fixed report delay.
// It returns false when the meeting already has a job, whatever its state.
func (s *RewardScheduler) Arm(ctx context.Context, req ArmRequest) (bool, error) {
	if err := req.validate(); err != nil {
		return false, err
	}

	now := s.now()
	job := &models.ReconciliationJob{
		MeetingUUID:             req.MeetingUUID,
		MeetingID:               req.MeetingID,
		WorkshopID:              req.WorkshopID,
		WorkshopDurationMinutes: req.WorkshopDurationMinutes,
		JoyCoins:                req.JoyCoins,
		Status:                  models.JobStatusArmed,
		DueAt:                   now.Add(constants.ReconciliationDelay),
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			return false, nil
		}
		slog.ErrorContext(ctx, "failed to arm reconciliation", "meeting_uuid", req.MeetingUUID, logging.ErrKey, err)
		return false, err
	}

	slog.InfoContext(ctx, "reconciliation armed",
		"meeting_uuid", req.MeetingUUID,
		"workshop_id", req.WorkshopID,
		"due_at", job.DueAt)
	return true, nil
}

// Get returns the job of a meeting
func (s *RewardScheduler) Get(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, error) {
	if meetingUUID == "" {
		return nil, domain.NewValidationError("meeting uuid is required")
	}
	job, _, err := s.jobs.GetWithRevision(ctx, meetingUUID)
	return job, err
}

// Retrigger re-arms an existing job to run now with a fresh attempt budget.
// A job being reconciled right now is left alone.
func (s *RewardScheduler) Retrigger(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, error) {
	if meetingUUID == "" {
		return nil, domain.NewValidationError("meeting uuid is required")
	}
	job, revision, err := s.jobs.GetWithRevision(ctx, meetingUUID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if job.Status == models.JobStatusReconciling && !job.IsDue(now, s.config.ClaimTimeout) {
		return nil, domain.NewConflictError("reconciliation is already running")
	}

	job.Status = models.JobStatusArmed
	job.Attempts = 0
	job.DueAt = now
	job.LastError = ""
	job.UpdatedAt = now
	if _, err := s.jobs.Update(ctx, job, revision); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "reconciliation re-triggered", "meeting_uuid", meetingUUID)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return job, nil
}

// Run polls for due jobs until ctx is cancelled.
func (s *RewardScheduler) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "reward scheduler started", "poll_interval", s.config.PollInterval)
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := s.ProcessDue(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to process due reconciliations", logging.ErrKey, err)
		}
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "reward scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		case <-s.wake:
		}
	}
}

// ProcessDue claims and reconciles every due job, returning how many it ran.
func (s *RewardScheduler) ProcessDue(ctx context.Context) (int, error) {
	due, err := s.jobs.ListDue(ctx, s.now(), s.config.ClaimTimeout)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, candidate := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		job, revision, ok := s.claim(ctx, candidate.MeetingUUID)
		if !ok {
			continue
		}
		s.execute(ctx, job, revision)
		processed++
	}
	return processed, nil
}

// claim moves a due job to reconciling. Losing the revision race to another
// worker is not an error.
func (s *RewardScheduler) claim(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, uint64, bool) {
	job, revision, err := s.jobs.GetWithRevision(ctx, meetingUUID)
	if err != nil {
		slog.WarnContext(ctx, "failed to load reconciliation job", "meeting_uuid", meetingUUID, logging.ErrKey, err)
		return nil, 0, false
	}
	now := s.now()
	if !job.IsDue(now, s.config.ClaimTimeout) {
		return nil, 0, false
	}
	if job.Status == models.JobStatusReconciling {
		slog.WarnContext(ctx, "reclaiming abandoned reconciliation", "meeting_uuid", meetingUUID, "attempts", job.Attempts)
	}

	job.Status = models.JobStatusReconciling
	job.Attempts++
	job.UpdatedAt = now
	claimed, err := s.jobs.Update(ctx, job, revision)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			slog.WarnContext(ctx, "failed to claim reconciliation job", "meeting_uuid", meetingUUID, logging.ErrKey, err)
		}
		return nil, 0, false
	}
	return job, claimed, true
}

func (s *RewardScheduler) execute(ctx context.Context, job *models.ReconciliationJob, revision uint64) {
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uuid", job.MeetingUUID))
	ctx = logging.AppendCtx(ctx, slog.Int("attempt", job.Attempts))

	summary, err := s.reconciler.Reconcile(ctx, job)
	s.finish(ctx, job, revision, summary, err)
}

// finish records the outcome of an attempt.
func (s *RewardScheduler) finish(ctx context.Context, job *models.ReconciliationJob, revision uint64, summary *models.ReconciliationCompletedMessage, runErr error) {
	now := s.now()
	job.UpdatedAt = now
	var outcome string

	switch {
	case runErr == nil:
		job.Status = models.JobStatusDone
		job.LastError = ""
		outcome = "done"
		attrs := []any{}
		if summary != nil {
			attrs = append(attrs,
				"participants", summary.Participants,
				"certificates_unlocked", summary.CertificatesUnlocked,
				"rewards_issued", summary.RewardsIssued)
		}
		slog.InfoContext(ctx, "reconciliation completed", attrs...)
	case domain.IsRetryable(runErr) && job.Attempts < s.config.MaxAttempts:
		job.Status = models.JobStatusArmed
		job.LastError = runErr.Error()
		job.DueAt = now.Add(s.backoff(job.Attempts))
		outcome = "retry"
		slog.WarnContext(ctx, "reconciliation failed, retrying",
			"next_attempt_at", job.DueAt,
			logging.ErrKey, runErr)
	default:
		job.Status = models.JobStatusFailed
		job.LastError = runErr.Error()
		outcome = "failed"
		slog.ErrorContext(ctx, "reconciliation failed permanently",
			logging.ErrKey, runErr,
			logging.PriorityCritical())
	}
	s.metrics.reconciliation(ctx, outcome)

	if _, err := s.jobs.Update(ctx, job, revision); err != nil {
		// the claim timeout returns the job to the due set
		slog.ErrorContext(ctx, "failed to record reconciliation outcome", "outcome", outcome, logging.ErrKey, err)
	}
}

// backoff returns the delay before the attempt following attempt n (1-based).
func (s *RewardScheduler) backoff(n int) time.Duration {
	delay := s.config.RetryBaseDelay
	for i := 1; i < n; i++ {
		delay *= 2
	}
	return delay
}
