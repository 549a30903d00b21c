package api

import (
	"context"
	"net/http"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventVerifier authenticates a raw webhook payload. Verification is
// mandatory before any content is acted on; the endpoint is public.
type EventVerifier interface {
	VerifyEvent(payload []byte, signature string) (*domain.PaymentEvent, error)
}

type EventApplier interface {
	Apply(ctx context.Context, event domain.PaymentEvent) error
}

type WebhookHandler struct {
	verifier   EventVerifier
	reconciler EventApplier
	log        *zap.Logger
}

func NewWebhookHandler(verifier EventVerifier, reconciler EventApplier, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, reconciler: reconciler, log: log}
}

func (h *WebhookHandler) Register(router *gin.RouterGroup) {
	router.POST("/stripe", h.handleStripe)
}

func (h *WebhookHandler) handleStripe(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := h.verifier.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.log.Warn("webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	if err := h.reconciler.Apply(c.Request.Context(), *event); err != nil {
		// 5xx makes the processor redeliver; the reconciler is safe to
		// replay.
		h.log.Error("failed to apply payment event",
			zap.String("event_id", event.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
