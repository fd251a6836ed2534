// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// MockParticipantRepository implements domain.ParticipantRepository for testing
type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) Get(ctx context.Context, userID, workshopID string) (*models.ParticipantRecord, error) {
	args := m.Called(ctx, userID, workshopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ParticipantRecord), args.Error(1)
}

func (m *MockParticipantRepository) Mutate(ctx context.Context, userID, workshopID string, mutate domain.ParticipantMutation) (*models.ParticipantRecord, error) {
	args := m.Called(ctx, userID, workshopID, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ParticipantRecord), args.Error(1)
}

func (m *MockParticipantRepository) ListByWorkshop(ctx context.Context, workshopID string) ([]*models.ParticipantRecord, error) {
	args := m.Called(ctx, workshopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ParticipantRecord), args.Error(1)
}
