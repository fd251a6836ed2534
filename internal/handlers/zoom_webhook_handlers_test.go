// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/zoom/webhook"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/constants"
)

const (
	testSecret    = "test-webhook-secret"
	testTimestamp = "1760000000"
)

type mockRouter struct {
	mock.Mock
}

func (m *mockRouter) Route(ctx context.Context, eventType string, payload map[string]any) error {
	args := m.Called(ctx, eventType, payload)
	return args.Error(0)
}

type stubProcessor struct {
	resp *service.WebhookResponse
	err  error
}

func (s stubProcessor) ProcessWebhookEvent(context.Context, service.WebhookRequest) (*service.WebhookResponse, error) {
	return s.resp, s.err
}

func newWebhookServer(router *mockRouter) http.Handler {
	svc := service.NewZoomWebhookService(
		webhook.NewZoomWebhookValidator(testSecret),
		store.NewInMemoryWebhookLogRepository(),
		router,
	)
	return middleware.WebhookBodyCaptureMiddleware(0)(NewZoomWebhookHandler(svc))
}

func webhookRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, constants.ZoomWebhookPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(constants.ZoomSignatureHeader, signature)
		req.Header.Set(constants.ZoomTimestampHeader, testTimestamp)
	}
	return req
}

func sign(body string) string {
	return webhook.NewZoomWebhookValidator(testSecret).Sign([]byte(body), testTimestamp)
}

func TestZoomWebhookHandler_AcknowledgesEvent(t *testing.T) {
	router := &mockRouter{}
	router.On("Route", mock.Anything, "meeting.participant_joined", mock.Anything).Return(nil)

	body := `{"event":"meeting.participant_joined","event_ts":1760000000000,"payload":{"object":{"id":"85746065432"}}}`
	rec := httptest.NewRecorder()
	newWebhookServer(router).ServeHTTP(rec, webhookRequest(body, sign(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ZoomWebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "meeting.participant_joined", resp.Event)
	router.AssertExpectations(t)
}

func TestZoomWebhookHandler_RouterFailureIsStillAcknowledged(t *testing.T) {
	router := &mockRouter{}
	router.On("Route", mock.Anything, "meeting.ended", mock.Anything).Return(domain.NewUnavailableError("store down"))

	body := `{"event":"meeting.ended","payload":{}}`
	rec := httptest.NewRecorder()
	newWebhookServer(router).ServeHTTP(rec, webhookRequest(body, sign(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestZoomWebhookHandler_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		signature string
		want      int
	}{
		{name: "missing signature", body: `{"event":"meeting.ended"}`, want: http.StatusUnauthorized},
		{name: "wrong signature", body: `{"event":"meeting.ended"}`, signature: "v0=deadbeef", want: http.StatusUnauthorized},
		{name: "signed with another secret", body: `{"event":"meeting.ended"}`,
			signature: webhook.NewZoomWebhookValidator("other").Sign([]byte(`{"event":"meeting.ended"}`), testTimestamp),
			want:      http.StatusUnauthorized},
		{name: "unparseable body", body: `{not json`, signature: sign(`{not json`), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := &mockRouter{}
			rec := httptest.NewRecorder()
			newWebhookServer(router).ServeHTTP(rec, webhookRequest(tt.body, tt.signature))

			assert.Equal(t, tt.want, rec.Code)
			router.AssertNotCalled(t, "Route", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestZoomWebhookHandler_EndpointValidation(t *testing.T) {
	body := `{"event":"endpoint.url_validation","payload":{"plainToken":"qgg8vlvZRS6UYooatFL8Aw"}}`
	rec := httptest.NewRecorder()
	newWebhookServer(&mockRouter{}).ServeHTTP(rec, webhookRequest(body, sign(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ZoomValidationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "qgg8vlvZRS6UYooatFL8Aw", resp.PlainToken)
	assert.Equal(t, webhook.NewZoomWebhookValidator(testSecret).EncryptToken("qgg8vlvZRS6UYooatFL8Aw"), resp.EncryptedToken)
}

func TestZoomWebhookHandler_MissingCapturedBody(t *testing.T) {
	handler := NewZoomWebhookHandler(stubProcessor{resp: &service.WebhookResponse{Event: "x"}})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, constants.ZoomWebhookPath, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestZoomWebhookHandler_ValidationErrorIsBadRequest(t *testing.T) {
	handler := middleware.WebhookBodyCaptureMiddleware(0)(NewZoomWebhookHandler(stubProcessor{err: domain.NewValidationError("invalid validation payload")}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(`{}`, "v0=x"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "400", resp.Code)
	assert.Equal(t, "invalid validation payload", resp.Message)
}

func TestZoomWebhookHandler_UnconfiguredSecretIsUnavailable(t *testing.T) {
	svc := service.NewZoomWebhookService(nil, store.NewInMemoryWebhookLogRepository(), &mockRouter{})
	handler := middleware.WebhookBodyCaptureMiddleware(0)(NewZoomWebhookHandler(svc))

	body := `{"event":"meeting.ended"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(body, sign(body)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
