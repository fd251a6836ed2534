// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Reconciliation scheduling
const (
	// ReconciliationDelay is how long after meeting.ended the participants report is fetched.
	// Zoom needs this time to finalize the report.
	ReconciliationDelay = 15 * time.Minute

	// ReconciliationMaxAttempts bounds retries of a failing reconciliation before it is marked failed
	ReconciliationMaxAttempts = 3

	// ReconciliationRetryBaseDelay is the first retry delay, doubled on every further attempt
	ReconciliationRetryBaseDelay = time.Minute

	// ReconciliationClaimTimeout is after how long a job stuck in reconciling is reclaimed
	ReconciliationClaimTimeout = 10 * time.Minute

	// SchedulerPollInterval is how often the scheduler looks for due jobs
	SchedulerPollInterval = 30 * time.Second
)

// Reward policy
const (
	// DefaultJoyCoinsReward is the amount credited for an unlocked certificate when
	// the workshop does not set its own amount
	DefaultJoyCoinsReward = 20
)

// Attendance NATS subjects and queues
const (
	// ReconciliationRetriggerSubject is the operator subject used to re-arm a meeting reconciliation
	ReconciliationRetriggerSubject = "lfx.attendance.reconciliation.retrigger"

	// AttendanceQueue is the queue group of the attendance service subscriptions
	AttendanceQueue = "lfx.attendance.queue"
)
