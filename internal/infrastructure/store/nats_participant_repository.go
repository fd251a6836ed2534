// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// NatsParticipantRepository is the NATS KV implementation of domain.ParticipantRepository.
// Records are keyed by workshop first so that a workshop listing is a prefix scan.
type NatsParticipantRepository struct {
	*NatsBaseRepository[models.ParticipantRecord]
	keyBuilder *KeyBuilder
}

var _ domain.ParticipantRepository = (*NatsParticipantRepository)(nil)

// NewNatsParticipantRepository creates a new NATS KV participant repository
func NewNatsParticipantRepository(kvStore INatsKeyValue) *NatsParticipantRepository {
	return &NatsParticipantRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.ParticipantRecord](kvStore, "participant"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

func (r *NatsParticipantRepository) key(userID, workshopID string) string {
	return r.keyBuilder.CompoundKeyEncoded(KeyPrefixParticipant, workshopID, userID)
}

// Get retrieves the record of a user in a workshop
func (r *NatsParticipantRepository) Get(ctx context.Context, userID, workshopID string) (*models.ParticipantRecord, error) {
	return r.NatsBaseRepository.Get(ctx, r.key(userID, workshopID))
}

// Mutate applies the mutation with a revision checked write, creating the record when absent
func (r *NatsParticipantRepository) Mutate(ctx context.Context, userID, workshopID string, mutate domain.ParticipantMutation) (*models.ParticipantRecord, error) {
	return r.Modify(ctx, r.key(userID, workshopID),
		func() *models.ParticipantRecord {
			return models.NewParticipantRecord(userID, workshopID, time.Now().UTC())
		},
		func(record *models.ParticipantRecord, created bool) error {
			return mutate(record, created)
		},
	)
}

// ListByWorkshop lists every participant record of a workshop
func (r *NatsParticipantRepository) ListByWorkshop(ctx context.Context, workshopID string) ([]*models.ParticipantRecord, error) {
	prefix := "/" + r.keyBuilder.CompoundKey(KeyPrefixParticipant, workshopID) + "/"
	return r.ListEntitiesEncoded(ctx, prefix, r.keyBuilder)
}
