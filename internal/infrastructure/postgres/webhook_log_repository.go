// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

const insertWebhookLogSQL = `INSERT INTO webhook_logs (id, event_type, payload, received_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO NOTHING`

// WebhookLogRepository appends raw webhook logs; seq preserves receipt order.
type WebhookLogRepository struct {
	db DB
}

var _ domain.WebhookLogRepository = (*WebhookLogRepository)(nil)

// NewWebhookLogRepository creates a webhook log repository.
func NewWebhookLogRepository(db DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// Append implements domain.WebhookLogRepository. Re-appending the same id is a no-op.
func (r *WebhookLogRepository) Append(ctx context.Context, entry *models.RawWebhookLog) error {
	if entry == nil || entry.ID == "" {
		return domain.NewValidationError("webhook log requires an id")
	}
	_, err := r.db.Exec(ctx, insertWebhookLogSQL, entry.ID, entry.EventType, entry.Payload, entry.ReceivedAt)
	return wrapError(err, "webhook log")
}
