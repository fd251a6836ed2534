// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// MockReconciliationJobRepository implements domain.ReconciliationJobRepository for testing
type MockReconciliationJobRepository struct {
	mock.Mock
}

func (m *MockReconciliationJobRepository) Create(ctx context.Context, job *models.ReconciliationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockReconciliationJobRepository) GetWithRevision(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, uint64, error) {
	args := m.Called(ctx, meetingUUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.ReconciliationJob), args.Get(1).(uint64), args.Error(2)
}

func (m *MockReconciliationJobRepository) Update(ctx context.Context, job *models.ReconciliationJob, revision uint64) (uint64, error) {
	args := m.Called(ctx, job, revision)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockReconciliationJobRepository) ListDue(ctx context.Context, now time.Time, claimTimeout time.Duration) ([]*models.ReconciliationJob, error) {
	args := m.Called(ctx, now, claimTimeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ReconciliationJob), args.Error(1)
}
