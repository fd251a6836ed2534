// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// RawWebhookLog is the append-only audit record of a verified inbound webhook.
type RawWebhookLog struct {
	ID         string    `json:"id" msgpack:"id"`
	EventType  string    `json:"event_type" msgpack:"event_type"`
	Payload    []byte    `json:"payload" msgpack:"payload"`
	ReceivedAt time.Time `json:"received_at" msgpack:"received_at"`
}
