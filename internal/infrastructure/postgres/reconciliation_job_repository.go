// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

const jobColumns = `meeting_uuid, meeting_id, workshop_id, workshop_duration_minutes, joy_coins, status,
	due_at, attempts, last_error, created_at, updated_at, revision`

const (
	insertJobSQL = `INSERT INTO reconciliation_jobs (` + jobColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)`

	selectJobSQL = `SELECT ` + jobColumns + ` FROM reconciliation_jobs WHERE meeting_uuid = $1`

	updateJobSQL = `UPDATE reconciliation_jobs SET
	meeting_id = $2, workshop_id = $3, workshop_duration_minutes = $4, joy_coins = $5, status = $6,
	due_at = $7, attempts = $8, last_error = $9, updated_at = $10, revision = revision + 1
	WHERE meeting_uuid = $1 AND revision = $11
	RETURNING revision`

	listDueJobsSQL = `SELECT ` + jobColumns + ` FROM reconciliation_jobs
	WHERE (status = 'armed' AND due_at <= $1)
	   OR (status = 'reconciling' AND updated_at <= $2)
	ORDER BY due_at`
)

// ReconciliationJobRepository is the PostgreSQL implementation of domain.ReconciliationJobRepository.
// The revision column provides the same compare-and-set semantics as the KV store.
type ReconciliationJobRepository struct {
	db DB
}

var _ domain.ReconciliationJobRepository = (*ReconciliationJobRepository)(nil)

// NewReconciliationJobRepository creates a job repository.
func NewReconciliationJobRepository(db DB) *ReconciliationJobRepository {
	return &ReconciliationJobRepository{db: db}
}

func scanJob(row pgx.Row) (*models.ReconciliationJob, uint64, error) {
	var (
		job      models.ReconciliationJob
		status   string
		revision int64
	)
	err := row.Scan(
		&job.MeetingUUID,
		&job.MeetingID,
		&job.WorkshopID,
		&job.WorkshopDurationMinutes,
		&job.JoyCoins,
		&status,
		&job.DueAt,
		&job.Attempts,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
		&revision,
	)
	if err != nil {
		return nil, 0, err
	}
	job.Status = models.JobStatus(status)
	return &job, uint64(revision), nil
}

// Create stores a new job; an existing job for the meeting is a conflict.
func (r *ReconciliationJobRepository) Create(ctx context.Context, job *models.ReconciliationJob) error {
	if job == nil || job.MeetingUUID == "" {
		return domain.NewValidationError("reconciliation job requires a meeting UUID")
	}
	_, err := r.db.Exec(ctx, insertJobSQL,
		job.MeetingUUID,
		job.MeetingID,
		job.WorkshopID,
		job.WorkshopDurationMinutes,
		job.JoyCoins,
		string(job.Status),
		job.DueAt,
		job.Attempts,
		job.LastError,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return wrapError(err, "reconciliation job")
}

// GetWithRevision retrieves a job and its revision.
func (r *ReconciliationJobRepository) GetWithRevision(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, uint64, error) {
	job, revision, err := scanJob(r.db.QueryRow(ctx, selectJobSQL, meetingUUID))
	if err != nil {
		return nil, 0, wrapError(err, "reconciliation job")
	}
	return job, revision, nil
}

// Update replaces the job when the stored revision still matches.
func (r *ReconciliationJobRepository) Update(ctx context.Context, job *models.ReconciliationJob, revision uint64) (uint64, error) {
	if job == nil || job.MeetingUUID == "" {
		return 0, domain.NewValidationError("reconciliation job requires a meeting UUID")
	}
	var next int64
	err := r.db.QueryRow(ctx, updateJobSQL,
		job.MeetingUUID,
		job.MeetingID,
		job.WorkshopID,
		job.WorkshopDurationMinutes,
		job.JoyCoins,
		string(job.Status),
		job.DueAt,
		job.Attempts,
		job.LastError,
		job.UpdatedAt,
		int64(revision),
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.NewConflictError("reconciliation job was modified concurrently")
	}
	if err != nil {
		return 0, wrapError(err, "reconciliation job")
	}
	return uint64(next), nil
}

// ListDue returns the armed jobs that are due and the reconciling jobs whose claim expired.
func (r *ReconciliationJobRepository) ListDue(ctx context.Context, now time.Time, claimTimeout time.Duration) ([]*models.ReconciliationJob, error) {
	rows, err := r.db.Query(ctx, listDueJobsSQL, now, now.Add(-claimTimeout))
	if err != nil {
		return nil, wrapError(err, "reconciliation job")
	}
	defer rows.Close()

	var jobs []*models.ReconciliationJob
	for rows.Next() {
		job, _, err := scanJob(rows)
		if err != nil {
			return nil, wrapError(err, "reconciliation job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "reconciliation job")
	}
	return jobs, nil
}
