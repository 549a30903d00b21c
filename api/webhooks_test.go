package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyEvent(payload []byte, signature string) (*domain.PaymentEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentEvent), args.Error(1)
}

type MockApplier struct {
	mock.Mock
}

func (m *MockApplier) Apply(ctx context.Context, event domain.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newWebhookRouter(verifier *MockVerifier, applier *MockApplier) *gin.Engine {
	router := gin.New()
	NewWebhookHandler(verifier, applier, zap.NewNop()).Register(router.Group("/webhooks"))
	return router
}

func TestWebhookHandler_ValidEventApplied(t *testing.T) {
	mockVerifier := &MockVerifier{}
	mockApplier := &MockApplier{}
	router := newWebhookRouter(mockVerifier, mockApplier)

	payload := []byte(`{"id":"evt_1"}`)
	event := &domain.PaymentEvent{ID: "evt_1", Kind: domain.PaymentEventHoldSucceeded, PaymentIntentID: "pi_123"}

	mockVerifier.On("VerifyEvent", payload, "sig_valid").Return(event, nil).Once()
	mockApplier.On("Apply", mock.Anything, *event).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "sig_valid")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())
	mockApplier.AssertExpectations(t)
}

func TestWebhookHandler_InvalidSignature_Rejected(t *testing.T) {
	mockVerifier := &MockVerifier{}
	mockApplier := &MockApplier{}
	router := newWebhookRouter(mockVerifier, mockApplier)

	mockVerifier.On("VerifyEvent", mock.Anything, "sig_bad").
		Return(nil, domain.ErrInvalidSignature).Once()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "sig_bad")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// A rejected payload must never reach the reconciler.
	mockApplier.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestWebhookHandler_ApplyFailure_TriggersRedelivery(t *testing.T) {
	mockVerifier := &MockVerifier{}
	mockApplier := &MockApplier{}
	router := newWebhookRouter(mockVerifier, mockApplier)

	event := &domain.PaymentEvent{ID: "evt_1", Kind: domain.PaymentEventHoldSucceeded, PaymentIntentID: "pi_123"}
	mockVerifier.On("VerifyEvent", mock.Anything, mock.Anything).Return(event, nil).Once()
	mockApplier.On("Apply", mock.Anything, *event).Return(assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "sig_valid")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
