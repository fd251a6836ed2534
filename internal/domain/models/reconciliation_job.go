// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// JobStatus is the state of a meeting's reconciliation job.
type JobStatus string

const (
	JobStatusArmed       JobStatus = "armed"
	JobStatusReconciling JobStatus = "reconciling"
	JobStatusDone        JobStatus = "done"
	JobStatusFailed      JobStatus = "failed"
)

// ReconciliationJob is the durable delayed task that reconciles one meeting instance
// against the Zoom participants report. MeetingUUID is the idempotency key.
type ReconciliationJob struct {
	MeetingUUID             string    `json:"meeting_uuid"`
	MeetingID               string    `json:"meeting_id"`
	WorkshopID              string    `json:"workshop_id"`
	WorkshopDurationMinutes int       `json:"workshop_duration_minutes"`
	JoyCoins                int       `json:"joy_coins"`
	Status                  JobStatus `json:"status"`
	DueAt                   time.Time `json:"due_at"`
	Attempts                int       `json:"attempts"`
	LastError               string    `json:"last_error,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// IsDue reports whether the job should be claimed at now. Jobs left in
// reconciling for longer than claimTimeout are considered abandoned.
func (j *ReconciliationJob) IsDue(now time.Time, claimTimeout time.Duration) bool {
	switch j.Status {
	case JobStatusArmed:
		return !now.Before(j.DueAt)
	case JobStatusReconciling:
		return now.Sub(j.UpdatedAt) >= claimTimeout
	}
	return false
}
