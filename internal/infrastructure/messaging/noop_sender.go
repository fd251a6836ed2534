// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// NoopEventSender logs attendance events instead of publishing them.
type NoopEventSender struct{}

var _ domain.AttendanceEventSender = NoopEventSender{}

// SendCertificateUnlocked implements domain.AttendanceEventSender.
func (NoopEventSender) SendCertificateUnlocked(ctx context.Context, message models.CertificateUnlockedMessage) error {
	slog.DebugContext(ctx, "certificate unlocked event not published",
		"user_id", message.UserID,
		"workshop_id", message.WorkshopID,
	)
	return nil
}

// SendReconciliationCompleted implements domain.AttendanceEventSender.
func (NoopEventSender) SendReconciliationCompleted(ctx context.Context, message models.ReconciliationCompletedMessage) error {
	slog.DebugContext(ctx, "reconciliation completed event not published", "meeting_uuid", message.MeetingUUID)
	return nil
}
