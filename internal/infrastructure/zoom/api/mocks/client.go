// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/zoom/api"
)

// MockReportsAPI is a mock implementation of the Zoom report operations
type MockReportsAPI struct {
	mock.Mock
}

// NewMockReportsAPI creates a new mock reports API
func NewMockReportsAPI() *MockReportsAPI {
	return &MockReportsAPI{}
}

// GetPastMeetingParticipants mocks the GetPastMeetingParticipants method
func (m *MockReportsAPI) GetPastMeetingParticipants(ctx context.Context, meetingUUID string) ([]api.ReportParticipant, error) {
	args := m.Called(ctx, meetingUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.ReportParticipant), args.Error(1)
}

// Ensure MockReportsAPI implements the ReportsAPI interface
var _ api.ReportsAPI = (*MockReportsAPI)(nil)
