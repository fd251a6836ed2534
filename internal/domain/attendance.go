// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// WebhookValidator verifies the authenticity of inbound webhook requests.
type WebhookValidator interface {
	ValidateSignature(body []byte, signature, timestamp string) error
	EncryptToken(plainToken string) string
}

// ReportFetcher retrieves the authoritative post-meeting participants report.
type ReportFetcher interface {
	GetParticipantsReport(ctx context.Context, meetingUUID string) ([]models.ParticipantReport, error)
}

// RewardIssuer credits Joy Coins. Implementations must treat a repeated
// TransactionID as already applied.
type RewardIssuer interface {
	IssueReward(ctx context.Context, request models.RewardRequest) (*models.RewardReceipt, error)
}

// AttendanceEventSender publishes attendance lifecycle events.
type AttendanceEventSender interface {
	SendCertificateUnlocked(ctx context.Context, message models.CertificateUnlockedMessage) error
	SendReconciliationCompleted(ctx context.Context, message models.ReconciliationCompletedMessage) error
}
