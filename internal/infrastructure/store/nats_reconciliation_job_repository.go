// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"
	"time"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// NatsReconciliationJobRepository is the NATS KV implementation of domain.ReconciliationJobRepository.
type NatsReconciliationJobRepository struct {
	*NatsBaseRepository[models.ReconciliationJob]
	keyBuilder *KeyBuilder
}

var _ domain.ReconciliationJobRepository = (*NatsReconciliationJobRepository)(nil)

// NewNatsReconciliationJobRepository creates a new NATS KV reconciliation job repository
func NewNatsReconciliationJobRepository(kvStore INatsKeyValue) *NatsReconciliationJobRepository {
	return &NatsReconciliationJobRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.ReconciliationJob](kvStore, "reconciliation job"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

func (r *NatsReconciliationJobRepository) key(meetingUUID string) string {
	return r.keyBuilder.CompoundKeyEncoded(KeyPrefixReconciliationJob, meetingUUID)
}

// Create stores a new job, the meeting UUID is the idempotency key
func (r *NatsReconciliationJobRepository) Create(ctx context.Context, job *models.ReconciliationJob) error {
	if job == nil || job.MeetingUUID == "" {
		return domain.NewValidationError("reconciliation job requires a meeting UUID")
	}
	return r.NatsBaseRepository.Create(ctx, r.key(job.MeetingUUID), job)
}

// GetWithRevision retrieves a job and its revision
func (r *NatsReconciliationJobRepository) GetWithRevision(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.key(meetingUUID))
}

// Update replaces a job if it has not changed since revision was read
func (r *NatsReconciliationJobRepository) Update(ctx context.Context, job *models.ReconciliationJob, revision uint64) (uint64, error) {
	if job == nil || job.MeetingUUID == "" {
		return 0, domain.NewValidationError("reconciliation job requires a meeting UUID")
	}
	if revision == 0 {
		return 0, domain.NewValidationError("revision is required to update reconciliation job")
	}
	return r.write(ctx, "update", r.key(job.MeetingUUID), job, revision)
}

// ListDue returns the jobs ready to be claimed, earliest due first
func (r *NatsReconciliationJobRepository) ListDue(ctx context.Context, now time.Time, claimTimeout time.Duration) ([]*models.ReconciliationJob, error) {
	jobs, err := r.ListEntitiesEncoded(ctx, "/"+KeyPrefixReconciliationJob+"/", r.keyBuilder)
	if err != nil {
		return nil, err
	}

	due := make([]*models.ReconciliationJob, 0, len(jobs))
	for _, job := range jobs {
		if job.IsDue(now, claimTimeout) {
			due = append(due, job)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })

	return due, nil
}
