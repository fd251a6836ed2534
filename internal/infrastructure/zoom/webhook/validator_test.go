// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
)

const (
	testSecret    = "zoom-webhook-secret"
	testTimestamp = "1760000000"
	testBody      = `{"event":"meeting.participant_joined","payload":{"object":{"uuid":"abc=="}}}`
)

func TestZoomWebhookValidator_Verify(t *testing.T) {
	v := NewZoomWebhookValidator(testSecret)
	signature := v.Sign([]byte(testBody), testTimestamp)

	t.Run("matching secret", func(t *testing.T) {
		assert.True(t, v.Verify([]byte(testBody), testTimestamp, signature))
	})

	t.Run("known vector", func(t *testing.T) {
		// echo -n 'v0:1:{}' | openssl dgst -sha256 -hmac secret
		known := NewZoomWebhookValidator("secret")
		expected := "v0=72947d217adec3a1867ba95783f65b308b2419ed224a5751b0b81e0b9a8c6851"
		assert.Equal(t, expected, known.Sign([]byte("{}"), "1"))
		assert.True(t, known.Verify([]byte("{}"), "1", expected))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewZoomWebhookValidator("another-secret")
		assert.False(t, other.Verify([]byte(testBody), testTimestamp, signature))
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.False(t, v.Verify([]byte(testBody), "", signature))
		assert.False(t, v.Verify([]byte(testBody), testTimestamp, ""))
		assert.False(t, NewZoomWebhookValidator("").Verify([]byte(testBody), testTimestamp, signature))
	})

	t.Run("malformed signature", func(t *testing.T) {
		assert.False(t, v.Verify([]byte(testBody), testTimestamp, "v0=zz"))
		assert.False(t, v.Verify([]byte(testBody), testTimestamp, signature[len(signaturePrefix):]))
	})
}

func flipBit(in []byte, bit int) []byte {
	out := append([]byte(nil), in...)
	out[bit/8] ^= 1 << (bit % 8)
	return out
}

func TestZoomWebhookValidator_Verify_SingleBitMutation(t *testing.T) {
	v := NewZoomWebhookValidator(testSecret)
	body := []byte(testBody)
	signature := v.Sign(body, testTimestamp)

	for bit := 0; bit < len(body)*8; bit++ {
		assert.False(t, v.Verify(flipBit(body, bit), testTimestamp, signature), "body bit %d", bit)
	}
	for bit := 0; bit < len(testTimestamp)*8; bit++ {
		assert.False(t, v.Verify(body, string(flipBit([]byte(testTimestamp), bit)), signature), "timestamp bit %d", bit)
	}
	for bit := 0; bit < len(signature)*8; bit++ {
		assert.False(t, v.Verify(body, testTimestamp, string(flipBit([]byte(signature), bit))), "signature bit %d", bit)
	}
}

func TestZoomWebhookValidator_ValidateSignature(t *testing.T) {
	v := NewZoomWebhookValidator(testSecret)
	body := []byte(testBody)

	require.NoError(t, v.ValidateSignature(body, v.Sign(body, testTimestamp), testTimestamp))

	tests := []struct {
		name      string
		validator *ZoomWebhookValidator
		signature string
		timestamp string
	}{
		{name: "no secret configured", validator: NewZoomWebhookValidator(""), signature: "v0=abc", timestamp: testTimestamp},
		{name: "missing signature", validator: v, signature: "", timestamp: testTimestamp},
		{name: "missing timestamp", validator: v, signature: "v0=abc", timestamp: ""},
		{name: "mismatch", validator: v, signature: "v0=abc", timestamp: testTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validator.ValidateSignature(body, tt.signature, tt.timestamp)
			require.Error(t, err)
			assert.Equal(t, domain.ErrorTypeUnauthorized, domain.GetErrorType(err))
			assert.NotContains(t, err.Error(), testSecret)
		})
	}
}

func TestZoomWebhookValidator_EncryptToken(t *testing.T) {
	v := NewZoomWebhookValidator(testSecret)

	assert.Equal(t, "a237566e044b73e6a1e54bd59974547487fa5f8143025ce0d04d82e7ee4c5e34",
		NewZoomWebhookValidator("secret").EncryptToken("plain"))

	token := v.EncryptToken("plain-token")
	assert.Len(t, token, 64)
	assert.Equal(t, token, v.EncryptToken("plain-token"))
	assert.NotEqual(t, token, v.EncryptToken("other-token"))
}

func TestMockWebhookValidator(t *testing.T) {
	m := NewMockWebhookValidator(testSecret)
	assert.NoError(t, m.ValidateSignature([]byte("{}"), "", ""))
	assert.Equal(t, NewZoomWebhookValidator(testSecret).EncryptToken("x"), m.EncryptToken("x"))
}
