// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/zoom"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/ledger"
)

const (
	testMeetingUUID = "4444AAAiAAAAAiAiAiiAii=="
	testMeetingID   = "85746065432"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 7, 16, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSender captures the published attendance events.
type recordingSender struct {
	mu        sync.Mutex
	unlocked  []models.CertificateUnlockedMessage
	completed []models.ReconciliationCompletedMessage
}

func (s *recordingSender) SendCertificateUnlocked(_ context.Context, message models.CertificateUnlockedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked = append(s.unlocked, message)
	return nil
}

func (s *recordingSender) SendReconciliationCompleted(_ context.Context, message models.ReconciliationCompletedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, message)
	return nil
}

func (s *recordingSender) Unlocked() []models.CertificateUnlockedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CertificateUnlockedMessage(nil), s.unlocked...)
}

func (s *recordingSender) Completed() []models.ReconciliationCompletedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReconciliationCompletedMessage(nil), s.completed...)
}

// harness wires the service layer over in-memory collaborators.
type harness struct {
	clock      *testClock
	ledger     *ledger.Ledger
	jobs       *store.NatsReconciliationJobRepository
	directory  *store.NatsWorkshopDirectory
	reports    *zoom.StaticReportFetcher
	wallet     *messaging.InMemoryWallet
	events     *recordingSender
	reconciler *Reconciler
	scheduler  *RewardScheduler
	router     *WebhookRouter
}

func newHarness(t *testing.T, config ServiceConfig) *harness {
	t.Helper()
	h := &harness{
		clock:     newTestClock(),
		ledger:    ledger.New(store.NewNatsParticipantRepository(store.NewInMemoryKeyValue(store.KVStoreNameParticipants))),
		jobs:      store.NewNatsReconciliationJobRepository(store.NewInMemoryKeyValue(store.KVStoreNameReconciliationJobs)),
		directory: store.NewNatsWorkshopDirectory(store.NewInMemoryKeyValue(store.KVStoreNameWorkshops)),
		reports:   zoom.NewStaticReportFetcher(),
		wallet:    messaging.NewInMemoryWallet(),
		events:    &recordingSender{},
	}
	h.reconciler = NewReconciler(h.ledger, h.reports, h.wallet, h.events, config)
	h.reconciler.now = h.clock.Now
	h.scheduler = NewRewardScheduler(h.jobs, h.reconciler, config)
	h.scheduler.now = h.clock.Now
	h.router = NewWebhookRouter(h.ledger, h.directory, h.scheduler, config)
	h.router.now = h.clock.Now
	return h
}

func (h *harness) addWorkshop(t *testing.T, workshop models.Workshop) {
	t.Helper()
	require.NoError(t, h.directory.Save(context.Background(), &workshop))
}

func meetingObject(extra map[string]any) map[string]any {
	object := map[string]any{
		"uuid":       testMeetingUUID,
		"id":         float64(85746065432),
		"topic":      "Intro to Open Source",
		"start_time": "2026-10-07T15:00:00Z",
		"duration":   float64(60),
	}
	for k, v := range extra {
		object[k] = v
	}
	return map[string]any{"account_id": "acc-1", "object": object}
}

func participantPayload(userName, field string, at time.Time) map[string]any {
	return meetingObject(map[string]any{
		"participant": map[string]any{
			"user_name": userName,
			"id":        "p-1",
			field:       at.Format(time.RFC3339),
		},
	})
}

func reportRow(name string, minutes int) models.ParticipantReport {
	return models.ParticipantReport{Name: name, DurationSeconds: minutes * 60}
}
