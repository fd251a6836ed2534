// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

func TestNatsParticipantRepository_Mutate(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsParticipantRepository(NewInMemoryKeyValue(KVStoreNameParticipants))

	_, err := repo.Get(ctx, "42", "ws-1")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))

	record, err := repo.Mutate(ctx, "42", "ws-1", func(r *models.ParticipantRecord, created bool) error {
		assert.True(t, created)
		assert.Equal(t, models.StatusRegistered, r.Status)
		r.TotalDurationMinutes = 50
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "42", record.UserID)
	assert.Equal(t, "ws-1", record.WorkshopID)

	record, err = repo.Mutate(ctx, "42", "ws-1", func(r *models.ParticipantRecord, created bool) error {
		assert.False(t, created)
		assert.Equal(t, 50, r.TotalDurationMinutes)
		r.AttendancePercentage = 83
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 83, record.AttendancePercentage)

	stored, err := repo.Get(ctx, "42", "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 50, stored.TotalDurationMinutes)
	assert.Equal(t, 83, stored.AttendancePercentage)
}

func TestNatsParticipantRepository_ListByWorkshop(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsParticipantRepository(NewInMemoryKeyValue(KVStoreNameParticipants))
	noop := func(*models.ParticipantRecord, bool) error { return nil }

	for _, key := range [][2]string{{"1", "ws-1"}, {"2", "ws-1"}, {"1", "ws-10"}} {
		_, err := repo.Mutate(ctx, key[0], key[1], noop)
		require.NoError(t, err)
	}

	records, err := repo.ListByWorkshop(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "ws-1", r.WorkshopID)
	}

	records, err = repo.ListByWorkshop(ctx, "ws-unknown")
	require.NoError(t, err)
	assert.Empty(t, records)
}
