// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// ParticipantMutation mutates a participant record inside a repository transaction.
// created is true when the record did not exist and was initialized with defaults.
type ParticipantMutation func(record *models.ParticipantRecord, created bool) error

// ParticipantRepository defines the storage operations for participant records.
// This interface can be implemented by different storage backends (NATS, PostgreSQL, etc.)
type ParticipantRepository interface {
	Get(ctx context.Context, userID, workshopID string) (*models.ParticipantRecord, error)
	// Mutate runs a serialized read-modify-write on the record keyed by (userID, workshopID),
	// creating it first when absent. The mutation may be retried on optimistic conflicts.
	Mutate(ctx context.Context, userID, workshopID string, mutate ParticipantMutation) (*models.ParticipantRecord, error)
	ListByWorkshop(ctx context.Context, workshopID string) ([]*models.ParticipantRecord, error)
}

// WebhookLogRepository stores the append-only raw webhook audit trail.
type WebhookLogRepository interface {
	Append(ctx context.Context, entry *models.RawWebhookLog) error
}

// ReconciliationJobRepository stores the durable delayed reconciliation jobs.
type ReconciliationJobRepository interface {
	// Create stores a new job and returns a conflict error if one exists for the meeting.
	Create(ctx context.Context, job *models.ReconciliationJob) error
	GetWithRevision(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, uint64, error)
	// Update replaces the job when revision still matches, otherwise returns a conflict error.
	// It returns the revision of the stored job.
	Update(ctx context.Context, job *models.ReconciliationJob, revision uint64) (uint64, error)
	ListDue(ctx context.Context, now time.Time, claimTimeout time.Duration) ([]*models.ReconciliationJob, error)
}

// WorkshopDirectory resolves the workshop behind a Zoom meeting.
type WorkshopDirectory interface {
	// GetByZoomMeetingID returns a not found error when the meeting is not a known workshop.
	GetByZoomMeetingID(ctx context.Context, zoomMeetingID string) (*models.Workshop, error)
}

// WorkshopCatalog is a workshop directory that accepts catalog entries.
type WorkshopCatalog interface {
	WorkshopDirectory
	Save(ctx context.Context, workshop *models.Workshop) error
}
