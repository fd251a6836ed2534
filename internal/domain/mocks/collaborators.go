// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// MockReportFetcher implements domain.ReportFetcher for testing
type MockReportFetcher struct {
	mock.Mock
}

func (m *MockReportFetcher) GetParticipantsReport(ctx context.Context, meetingUUID string) ([]models.ParticipantReport, error) {
	args := m.Called(ctx, meetingUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ParticipantReport), args.Error(1)
}

// MockRewardIssuer implements domain.RewardIssuer for testing
type MockRewardIssuer struct {
	mock.Mock
}

func (m *MockRewardIssuer) IssueReward(ctx context.Context, request models.RewardRequest) (*models.RewardReceipt, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardReceipt), args.Error(1)
}

// MockAttendanceEventSender implements domain.AttendanceEventSender for testing
type MockAttendanceEventSender struct {
	mock.Mock
}

func (m *MockAttendanceEventSender) SendCertificateUnlocked(ctx context.Context, message models.CertificateUnlockedMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockAttendanceEventSender) SendReconciliationCompleted(ctx context.Context, message models.ReconciliationCompletedMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// MockWorkshopDirectory implements domain.WorkshopDirectory for testing
type MockWorkshopDirectory struct {
	mock.Mock
}

func (m *MockWorkshopDirectory) GetByZoomMeetingID(ctx context.Context, zoomMeetingID string) (*models.Workshop, error) {
	args := m.Called(ctx, zoomMeetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workshop), args.Error(1)
}

// MockWebhookLogRepository implements domain.WebhookLogRepository for testing
type MockWebhookLogRepository struct {
	mock.Mock
}

func (m *MockWebhookLogRepository) Append(ctx context.Context, entry *models.RawWebhookLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockWebhookValidator implements domain.WebhookValidator for testing
type MockWebhookValidator struct {
	mock.Mock
}

func (m *MockWebhookValidator) ValidateSignature(body []byte, signature, timestamp string) error {
	args := m.Called(body, signature, timestamp)
	return args.Error(0)
}

func (m *MockWebhookValidator) EncryptToken(plainToken string) string {
	args := m.Called(plainToken)
	return args.String(0)
}
