package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
	"github.com/maryreaky/betrix-payments/internal/domain/usecase/ingest"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/api/dto"
	mockcore "github.com/maryreaky/betrix-payments/mocks/port/core"
	mocknotify "github.com/maryreaky/betrix-payments/mocks/port/notify"
	mockpersistence "github.com/maryreaky/betrix-payments/mocks/port/persistence"
)

const webhookSecret = "test-shared-secret"

type webhookFixture struct {
	router   *gin.Engine
	verifier *ingest.SignatureVerifier
	repo     *mockpersistence.MockTransactionRepository
	notifier *mocknotify.MockNotifier
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := new(mockpersistence.MockTransactionRepository)
	notifier := new(mocknotify.MockNotifier)
	logger := mockcore.NewMockLogger()
	tp := mockcore.NewFixedTimeProvider(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	ingestor := ingest.NewIngestor(repo, notifier, tp, logger, 3)
	verifier := ingest.NewSignatureVerifier(webhookSecret, logger)
	h := NewWebhookHandler(verifier, ingestor, logger)

	router := gin.New()
	router.POST("/webhooks/payments", h.HandleProviderEvent)

	return &webhookFixture{router: router, verifier: verifier, repo: repo, notifier: notifier}
}

func (f *webhookFixture) deliver(t *testing.T, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	req.Header.Set(EventIDHeader, "delivery-1")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func successBody(reference, providerID string) []byte {
	body, _ := json.Marshal(dto.WebhookEvent{
		Event: "transaction.success",
		Data: dto.WebhookEventData{
			ID:        providerID,
			Reference: reference,
			Amount:    "300.00",
			Phone:     "254712345678",
		},
	})
	return body
}

func TestWebhookHandler_AppliesVerifiedEvent(t *testing.T) {
	f := newWebhookFixture(t)
	body := successBody("BX1", "prov-1")

	txn := &entity.Transaction{Reference: "BX1", Status: entity.StatusPending, Amount: "300.00", Currency: "KES"}
	f.repo.On("GetByProviderTransactionID", mock.Anything, "prov-1").Return(txn, nil)
	f.repo.On("ResolveIfPending", mock.Anything, "BX1", mock.Anything).Return(true, nil)
	f.notifier.On("PaymentStateChanged", mock.Anything, mock.Anything).Return(nil)

	w := f.deliver(t, body, f.verifier.Sign(body))
	require.Equal(t, http.StatusOK, w.Code)

	var ack dto.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.True(t, ack.Accepted)
	assert.True(t, ack.Applied)
	assert.Equal(t, string(entity.StatusSuccess), ack.Status)

	f.repo.AssertExpectations(t)
}

func TestWebhookHandler_RejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	body := successBody("BX2", "prov-2")

	testCases := []struct {
		name      string
		signature string
	}{
		{"missing signature", ""},
		{"wrong signature", "deadbeef"},
		{"signature over different bytes", f.verifier.Sign([]byte(`{"other":"payload"}`))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.deliver(t, body, tc.signature)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, errs.ErrorCode(errs.ErrInvalidSignature), resp.Code)
		})
	}

	// state was never touched
	f.repo.AssertNotCalled(t, "ResolveIfPending", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_RejectsMalformedBody(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"event": "transaction.success", "data":`)

	// the signature is valid for these bytes, so the failure is the parse
	w := f.deliver(t, body, f.verifier.Sign(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_DuplicateDeliveryStillAcks(t *testing.T) {
	f := newWebhookFixture(t)
	body := successBody("BX3", "prov-3")

	txn := &entity.Transaction{Reference: "BX3", Status: entity.StatusSuccess, Amount: "300.00", Currency: "KES"}
	f.repo.On("GetByProviderTransactionID", mock.Anything, "prov-3").Return(txn, nil)

	w := f.deliver(t, body, f.verifier.Sign(body))
	require.Equal(t, http.StatusOK, w.Code)

	var ack dto.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.True(t, ack.Accepted)
	assert.False(t, ack.Applied)
	assert.Equal(t, string(entity.StatusSuccess), ack.Status)

	f.notifier.AssertNotCalled(t, "PaymentStateChanged", mock.Anything, mock.Anything)
}

func TestWebhookHandler_EarlyEventIsBufferedAndAcked(t *testing.T) {
	f := newWebhookFixture(t)
	body := successBody("BX4", "prov-4")

	f.repo.On("GetByProviderTransactionID", mock.Anything, "prov-4").Return(nil, errs.ErrTransactionNotFound)
	f.repo.On("GetByReference", mock.Anything, "BX4").Return(nil, errs.ErrTransactionNotFound)

	// acceptance is durable even before the transaction record exists
	w := f.deliver(t, body, f.verifier.Sign(body))
	require.Equal(t, http.StatusOK, w.Code)

	var ack dto.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.True(t, ack.Accepted)
	assert.False(t, ack.Applied)
}
