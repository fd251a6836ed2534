// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects used by the attendance service.
const (
	// CertificateUnlockedSubject is published once when a participant's certificate unlocks.
	CertificateUnlockedSubject = "lfx.attendance.certificate_unlocked"
	// ReconciliationCompletedSubject is published after each reconciliation run.
	ReconciliationCompletedSubject = "lfx.attendance.reconciliation_completed"
	// RewardIssueSubject is the request/reply subject of the Joy Coin wallet.
	RewardIssueSubject = "lfx.rewards.joy_coins.issue"
	// WebhookLogSubjectPrefix prefixes the raw webhook audit stream subjects.
	WebhookLogSubjectPrefix = "lfx.attendance.webhook_log"
)

// CertificateUnlockedMessage is consumed by the certificate issuer to produce the artifact.
type CertificateUnlockedMessage struct {
	UserID               string    `json:"user_id"`
	WorkshopID           string    `json:"workshop_id"`
	Role                 string    `json:"role"`
	AttendancePercentage int       `json:"attendance_percentage"`
	TotalDurationMinutes int       `json:"total_duration_minutes"`
	UnlockedAt           time.Time `json:"unlocked_at"`
}

// ReconciliationCompletedMessage summarizes a reconciliation run.
type ReconciliationCompletedMessage struct {
	MeetingUUID          string    `json:"meeting_uuid"`
	WorkshopID           string    `json:"workshop_id"`
	Participants         int       `json:"participants"`
	Skipped              int       `json:"skipped"`
	CertificatesUnlocked int       `json:"certificates_unlocked"`
	RewardsIssued        int       `json:"rewards_issued"`
	Failures             int       `json:"failures"`
	CompletedAt          time.Time `json:"completed_at"`
}

// ReconciliationRetriggerRequest asks the scheduler to run a meeting's reconciliation again.
type ReconciliationRetriggerRequest struct {
	MeetingUUID string `json:"meeting_uuid"`
}

// ReconciliationRetriggerReply answers a re-trigger request sent with a reply subject.
type ReconciliationRetriggerReply struct {
	Job   *ReconciliationJob `json:"job,omitempty"`
	Error string             `json:"error,omitempty"`
}
