// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
)

// NatsMessage adapts a NATS message to domain.Message.
type NatsMessage struct {
	msg *nats.Msg
}

var _ domain.Message = (*NatsMessage)(nil)

// NewNatsMessage wraps msg.
func NewNatsMessage(msg *nats.Msg) *NatsMessage {
	return &NatsMessage{msg: msg}
}

// Subject implements domain.Message.
func (m *NatsMessage) Subject() string { return m.msg.Subject }

// Data implements domain.Message.
func (m *NatsMessage) Data() []byte { return m.msg.Data }

// HasReply implements domain.Message.
func (m *NatsMessage) HasReply() bool { return m.msg.Reply != "" }

// Respond implements domain.Message.
func (m *NatsMessage) Respond(data []byte) error { return m.msg.Respond(data) }

// Context returns parent enriched with the trace context carried in the message headers.
func (m *NatsMessage) Context(parent context.Context) context.Context {
	if m.msg.Header == nil {
		return parent
	}
	return otel.GetTextMapPropagator().Extract(parent, propagation.HeaderCarrier(m.msg.Header))
}

// Subscribe registers handler on subject within queue and dispatches every
// delivered message through it.
func Subscribe(ctx context.Context, conn *nats.Conn, subject, queue string, handler domain.MessageHandler) (*nats.Subscription, error) {
	return conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		wrapped := NewNatsMessage(msg)
		handler.HandleMessage(wrapped.Context(ctx), wrapped)
	})
}
