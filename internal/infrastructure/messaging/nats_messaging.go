// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// INatsConn is the subset of a NATS connection used by the attendance service.
type INatsConn interface {
	IsConnected() bool
	PublishMsg(msg *nats.Msg) error
	RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
}

// MessageBuilder is the builder for the message and sends it to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
}

var _ domain.AttendanceEventSender = (*MessageBuilder)(nil)

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
	}
}

// newMsg builds a message carrying the trace context of ctx in its headers.
func newMsg(ctx context.Context, subject string, data []byte) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return msg
}

// publish sends the message to the NATS server.
func (m *MessageBuilder) publish(ctx context.Context, subject string, data []byte) error {
	err := m.NatsConn.PublishMsg(newMsg(ctx, subject, data))
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return domain.NewUnavailableError("failed to publish "+subject, err)
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

func (m *MessageBuilder) publishJSON(ctx context.Context, subject string, data any) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err, "subject", subject)
		return domain.NewInternalError("failed to marshal "+subject, err)
	}
	return m.publish(ctx, subject, dataBytes)
}

// SendCertificateUnlocked notifies the certificate issuer that a participant qualified.
func (m *MessageBuilder) SendCertificateUnlocked(ctx context.Context, message models.CertificateUnlockedMessage) error {
	return m.publishJSON(ctx, models.CertificateUnlockedSubject, message)
}

// SendReconciliationCompleted publishes the summary of a reconciliation run.
func (m *MessageBuilder) SendReconciliationCompleted(ctx context.Context, message models.ReconciliationCompletedMessage) error {
	return m.publishJSON(ctx, models.ReconciliationCompletedSubject, message)
}
