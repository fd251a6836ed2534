// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// Common key prefixes
const (
	KeyPrefixParticipant       = "participant"
	KeyPrefixReconciliationJob = "reconciliation-job"
	KeyPrefixWorkshop          = "workshop"
	KeyPrefixZoomMeeting       = "zoom-meeting"
)

// KeyBuilder provides utilities for building consistent NATS KV keys
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// CompoundKey builds a plain key from multiple parts (e.g., "participant/ws-1/42")
func (kb *KeyBuilder) CompoundKey(parts ...string) string {
	return kb.applyPrefix(strings.Join(parts, "/"))
}

// CompoundKeyEncoded builds a key with every part encoded on its own, so any
// identifier, Zoom meeting UUIDs with slashes included, is a valid NATS KV key.
func (kb *KeyBuilder) CompoundKeyEncoded(parts ...string) string {
	if kb.prefix != "" {
		parts = append([]string{kb.prefix}, parts...)
	}
	return encodeParts(parts)
}

// applyPrefix adds the builder's prefix if one is set
func (kb *KeyBuilder) applyPrefix(key string) string {
	if kb.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", kb.prefix, key)
}

func encodeParts(parts []string) string {
	res := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == ">" || part == "*" {
			res = append(res, part)
			continue
		}
		res = append(res, base64.URLEncoding.EncodeToString([]byte(part)))
	}
	return strings.Join(res, ".")
}

// EncodeKey encodes a key for NATS KV store, one URL-safe base64 token per path part.
// From https://github.com/ripienaar/encodedkv
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) EncodeKey(key string) (string, error) {
	trimmed := strings.TrimPrefix(key, "/")
	if trimmed == "" {
		return "", nats.ErrInvalidKey
	}

	return encodeParts(strings.Split(trimmed, "/")), nil
}

// DecodeKey decodes a key built by EncodeKey. The result has a leading "/".
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	if key == "" {
		return "", nats.ErrInvalidKey
	}

	res := []string{}
	for _, part := range strings.Split(key, ".") {
		k, err := base64.URLEncoding.DecodeString(part)
		if err != nil {
			return "", err
		}
		res = append(res, string(k))
	}

	return "/" + strings.Join(res, "/"), nil
}
