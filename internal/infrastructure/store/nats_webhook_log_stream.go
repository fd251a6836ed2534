// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// StreamNameWebhookLogs is the JetStream stream holding the raw webhook audit trail.
const StreamNameWebhookLogs = "ZOOM_WEBHOOK_LOGS"

// IJetStreamPublisher is the subset of jetstream.JetStream used to append log records.
type IJetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// WebhookLogStreamConfig returns the stream definition backing the webhook log.
func WebhookLogStreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        StreamNameWebhookLogs,
		Description: "Append-only audit log of verified Zoom webhooks",
		Subjects:    []string{models.WebhookLogSubjectPrefix + ".>"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
	}
}

// NatsWebhookLogRepository appends msgpack encoded webhook records to a JetStream stream.
type NatsWebhookLogRepository struct {
	js IJetStreamPublisher
}

var _ domain.WebhookLogRepository = (*NatsWebhookLogRepository)(nil)

// NewNatsWebhookLogRepository creates a JetStream backed webhook log
func NewNatsWebhookLogRepository(js IJetStreamPublisher) *NatsWebhookLogRepository {
	return &NatsWebhookLogRepository{js: js}
}

// webhookLogSubject maps an event type to a subject token, e.g.
// "meeting.participant_joined" -> "lfx.attendance.webhook_log.meeting.participant_joined".
func webhookLogSubject(eventType string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '*', '>':
			return '_'
		}
		return r
	}, strings.Trim(eventType, "."))
	if token == "" {
		token = "unknown"
	}
	return models.WebhookLogSubjectPrefix + "." + token
}

// Append publishes the record, using its id for JetStream deduplication
func (r *NatsWebhookLogRepository) Append(ctx context.Context, entry *models.RawWebhookLog) error {
	subject := webhookLogSubject(entry.EventType)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.stream.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", subject),
			attribute.String("messaging.message.id", entry.ID),
		),
	)
	defer span.End()

	if r.js == nil {
		return failSpan(span, domain.NewUnavailableError("webhook log stream is not available"), "")
	}

	data, err := msgpack.Marshal(entry)
	if err != nil {
		return failSpan(span, domain.NewInternalError("failed to encode webhook log", err), "")
	}

	if _, err := r.js.Publish(ctx, subject, data, jetstream.WithMsgID(entry.ID)); err != nil {
		slog.ErrorContext(ctx, "error appending webhook log", logging.ErrKey, err, "subject", subject)
		return failSpan(span, domain.NewUnavailableError("failed to append webhook log", err), "")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// DecodeWebhookLog decodes a record read back from the stream
func DecodeWebhookLog(data []byte) (*models.RawWebhookLog, error) {
	var entry models.RawWebhookLog
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode webhook log: %w", err)
	}
	return &entry, nil
}

// InMemoryWebhookLogRepository keeps the webhook log in process memory.
type InMemoryWebhookLogRepository struct {
	mu      sync.Mutex
	entries []models.RawWebhookLog
}

var _ domain.WebhookLogRepository = (*InMemoryWebhookLogRepository)(nil)

// NewInMemoryWebhookLogRepository creates an empty in-memory webhook log
func NewInMemoryWebhookLogRepository() *InMemoryWebhookLogRepository {
	return &InMemoryWebhookLogRepository{}
}

// Append stores a copy of the record
func (r *InMemoryWebhookLogRepository) Append(ctx context.Context, entry *models.RawWebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *entry
	copied.Payload = append([]byte(nil), entry.Payload...)
	r.entries = append(r.entries, copied)
	return nil
}

// Entries returns the records in receipt order
func (r *InMemoryWebhookLogRepository) Entries() []models.RawWebhookLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RawWebhookLog(nil), r.entries...)
}
