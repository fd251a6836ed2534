// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/utils"
)

func newTestLedger(t *testing.T) (*Ledger, *time.Time) {
	t.Helper()
	l := New(store.NewNatsParticipantRepository(store.NewInMemoryKeyValue(store.KVStoreNameParticipants)))
	now := time.Date(2026, 10, 7, 15, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLedger_UpsertCreatesWithDefaults(t *testing.T) {
	ctx := context.Background()
	l, now := newTestLedger(t)

	joined := now.Add(2 * time.Minute)
	record, err := l.Upsert(ctx, "42", "ws-1", models.ParticipantPatch{JoinTime: &joined})
	require.NoError(t, err)

	assert.Equal(t, models.RoleParticipant, record.Role)
	assert.Equal(t, models.StatusRegistered, record.Status)
	assert.Equal(t, *now, record.CreatedAt)
	assert.Equal(t, *now, record.UpdatedAt)
	require.NotNil(t, record.JoinTime)
	assert.Equal(t, joined, *record.JoinTime)
	assert.Zero(t, record.TotalDurationMinutes)

	*now = now.Add(time.Hour)
	record, err = l.Upsert(ctx, "42", "ws-1", models.ParticipantPatch{})
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Hour), record.CreatedAt)
	assert.Equal(t, *now, record.UpdatedAt)
}

func TestLedger_Validation(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	_, err := l.Upsert(ctx, "", "ws-1", models.ParticipantPatch{})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	_, err = l.Find(ctx, "42", "")
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	_, err = l.ListByWorkshop(ctx, "")
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}

func TestLedger_FindMissing(t *testing.T) {
	l, _ := newTestLedger(t)

	record, err := l.Find(context.Background(), "42", "ws-1")
	assert.Nil(t, record)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestLedger_MonotonicFlags(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	_, err := l.Upsert(ctx, "42", "ws-1", models.ParticipantPatch{
		TotalDurationMinutes: utils.IntPtr(50),
		AttendancePercentage: utils.IntPtr(83),
		CertificateUnlocked:  utils.BoolPtr(true),
		Status:               utils.Ptr(models.StatusCompleted),
	})
	require.NoError(t, err)

	// older, conflicting data arrives later
	change, err := l.Apply(ctx, "42", "ws-1", models.ParticipantPatch{
		TotalDurationMinutes: utils.IntPtr(20),
		AttendancePercentage: utils.IntPtr(33),
		CertificateUnlocked:  utils.BoolPtr(false),
		Status:               utils.Ptr(models.StatusAttended),
	})
	require.NoError(t, err)

	assert.True(t, change.After.CertificateUnlocked)
	assert.Equal(t, models.StatusCompleted, change.After.Status)
	assert.Equal(t, 50, change.After.TotalDurationMinutes, "duration is rejected with the percentage")
	assert.Equal(t, 83, change.After.AttendancePercentage, "unlocked record keeps a qualifying percentage")
	assert.Len(t, change.Violations, 3)
	assert.False(t, change.CertificateUnlocked(), "no unlock transition")

	stored, err := l.Find(ctx, "42", "ws-1")
	require.NoError(t, err)
	assert.True(t, stored.CertificateUnlocked)
}

func TestLedger_ApplyReportsUnlockTransition(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	change, err := l.Apply(ctx, "42", "ws-1", models.ParticipantPatch{
		AttendancePercentage: utils.IntPtr(80),
		CertificateUnlocked:  utils.BoolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, change.Created())
	assert.True(t, change.CertificateUnlocked())

	change, err = l.Apply(ctx, "42", "ws-1", models.ParticipantPatch{CertificateUnlocked: utils.BoolPtr(true)})
	require.NoError(t, err)
	assert.False(t, change.Created())
	assert.False(t, change.CertificateUnlocked())
}

func TestLedger_AwardOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an unlocked certificate", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.Upsert(ctx, "42", "ws-1", models.ParticipantPatch{AttendancePercentage: utils.IntPtr(33)})
		require.NoError(t, err)

		issued, _, err := l.AwardOnce(ctx, "42", "ws-1", func(context.Context, *models.ParticipantRecord) error {
			t.Fatal("issue must not be called")
			return nil
		})
		require.NoError(t, err)
		assert.False(t, issued)
	})

	t.Run("missing record", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, _, err := l.AwardOnce(ctx, "42", "ws-1", func(context.Context, *models.ParticipantRecord) error { return nil })
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})

	t.Run("issue failure leaves the flag unset", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.Upsert(ctx, "42", "ws-1", models.ParticipantPatch{
			AttendancePercentage: utils.IntPtr(90),
			CertificateUnlocked:  utils.BoolPtr(true),
		})
		require.NoError(t, err)

		issued, _, err := l.AwardOnce(ctx, "42", "ws-1", func(context.Context, *models.ParticipantRecord) error {
			return domain.NewExternalServiceError("wallet unavailable")
		})
		require.Error(t, err)
		assert.False(t, issued)

		record, err := l.Find(ctx, "42", "ws-1")
		require.NoError(t, err)
		assert.False(t, record.JoyCoinsAwarded)
	})

	t.Run("concurrent callers issue exactly once", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.Upsert(ctx, "42", "ws-1", models.ParticipantPatch{
			AttendancePercentage: utils.IntPtr(90),
			CertificateUnlocked:  utils.BoolPtr(true),
		})
		require.NoError(t, err)

		var calls atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := l.AwardOnce(ctx, "42", "ws-1", func(context.Context, *models.ParticipantRecord) error {
					calls.Add(1)
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		record, err := l.Find(ctx, "42", "ws-1")
		require.NoError(t, err)
		assert.True(t, record.JoyCoinsAwarded)
		assert.Zero(t, l.locks.size())
	})
}

func TestLedger_ConcurrentUpsertsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	joined := time.Date(2026, 10, 7, 15, 1, 0, 0, time.UTC)
	left := time.Date(2026, 10, 7, 15, 51, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for _, patch := range []models.ParticipantPatch{
		{JoinTime: &joined},
		{LeaveTime: &left},
		{TotalDurationMinutes: utils.IntPtr(50), AttendancePercentage: utils.IntPtr(83)},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Upsert(ctx, "42", "ws-1", patch)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	record, err := l.Find(ctx, "42", "ws-1")
	require.NoError(t, err)
	require.NotNil(t, record.JoinTime)
	require.NotNil(t, record.LeaveTime)
	assert.Equal(t, 50, record.TotalDurationMinutes)
	assert.Equal(t, 83, record.AttendancePercentage)
}

func TestLedger_RepositoryError(t *testing.T) {
	l := New(store.NewNatsParticipantRepository(nil))

	_, err := l.Upsert(context.Background(), "42", "ws-1", models.ParticipantPatch{})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestLedger_UpdateRequiresExistingRecord(t *testing.T) {
	ctx := context.Background()
	l, now := newTestLedger(t)
	left := now.Add(50 * time.Minute)

	record, err := l.Update(ctx, "42", "ws-1", models.ParticipantPatch{LeaveTime: &left})
	assert.Nil(t, record)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	_, err = l.Find(ctx, "42", "ws-1")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))

	_, err = l.Upsert(ctx, "42", "ws-1", models.ParticipantPatch{JoinTime: now})
	require.NoError(t, err)
	record, err = l.Update(ctx, "42", "ws-1", models.ParticipantPatch{LeaveTime: &left})
	require.NoError(t, err)
	require.NotNil(t, record.LeaveTime)
	assert.Equal(t, left, *record.LeaveTime)

	_, err = l.Update(ctx, "", "ws-1", models.ParticipantPatch{})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}
