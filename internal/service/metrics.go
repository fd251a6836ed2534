// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

const meterName = "github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/service"

// attendanceMetrics holds the counters recorded by the service layer.
type attendanceMetrics struct {
	webhookEvents        metric.Int64Counter
	certificatesUnlocked metric.Int64Counter
	rewardsIssued        metric.Int64Counter
	reconciliations      metric.Int64Counter
}

func newAttendanceMetrics() *attendanceMetrics {
	meter := otel.Meter(meterName)
	return &attendanceMetrics{
		webhookEvents:        counter(meter, "attendance.webhook.events", "Verified Zoom webhook events by type"),
		certificatesUnlocked: counter(meter, "attendance.certificates.unlocked", "Certificates unlocked by reconciliation"),
		rewardsIssued:        counter(meter, "attendance.rewards.issued", "Joy Coin rewards issued"),
		reconciliations:      counter(meter, "attendance.reconciliations", "Reconciliation attempts by outcome"),
	}
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		slog.Warn("failed to create metric counter", "metric", name, logging.ErrKey, err)
		return noop.Int64Counter{}
	}
	return c
}

func (m *attendanceMetrics) webhookEvent(ctx context.Context, event string) {
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

func (m *attendanceMetrics) reconciliation(ctx context.Context, outcome string) {
	m.reconciliations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
