package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway drives the escrow protocol on Stripe PaymentIntents.
// Holds are authorization-only (capture_method=manual): funds stay reserved
// on the card until CaptureHold converts them into a charge or CancelHold
// releases them.
type StripeGateway struct {
	webhookSecret string
	timeout       time.Duration
}

func NewStripeGateway(secretKey, webhookSecret string, timeout time.Duration) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret, timeout: timeout}
}

func (g *StripeGateway) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

func (g *StripeGateway) CreateHold(ctx context.Context, amountCents int64, metadata map[string]string) (*domain.PaymentHold, error) {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(string(stripe.CurrencyUSD)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Metadata:      metadata,
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create hold: %v", domain.ErrPaymentGateway, err)
	}
	return &domain.PaymentHold{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) CaptureHold(ctx context.Context, holdID string) error {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	if _, err := paymentintent.Capture(holdID, params); err != nil {
		if g.holdInState(ctx, err, holdID, stripe.PaymentIntentStatusSucceeded) {
			return nil
		}
		return fmt.Errorf("%w: capture hold %s: %v", domain.ErrPaymentGateway, holdID, err)
	}
	return nil
}

func (g *StripeGateway) CancelHold(ctx context.Context, holdID string) error {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := paymentintent.Cancel(holdID, params); err != nil {
		if g.holdInState(ctx, err, holdID, stripe.PaymentIntentStatusCanceled) {
			return nil
		}
		return fmt.Errorf("%w: cancel hold %s: %v", domain.ErrPaymentGateway, holdID, err)
	}
	return nil
}

func (g *StripeGateway) Refund(ctx context.Context, holdID string, amountCents int64) error {
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(holdID),
	}
	if amountCents > 0 {
		params.Amount = stripe.Int64(amountCents)
	}
	params.Context = ctx

	if _, err := refund.New(params); err != nil {
		var sErr *stripe.Error
		if errors.As(err, &sErr) && sErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			return nil
		}
		return fmt.Errorf("%w: refund hold %s: %v", domain.ErrPaymentGateway, holdID, err)
	}
	return nil
}

// holdInState reports whether a failed capture/cancel was a duplicate of an
// already-applied transition, which the caller treats as a no-op.
func (g *StripeGateway) holdInState(ctx context.Context, callErr error, holdID string, want stripe.PaymentIntentStatus) bool {
	var sErr *stripe.Error
	if !errors.As(callErr, &sErr) || sErr.Code != stripe.ErrorCodePaymentIntentUnexpectedState {
		return false
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(holdID, params)
	return err == nil && pi.Status == want
}

// VerifyEvent checks the Stripe-Signature header against the raw payload
// before anything in it is trusted. Event kinds outside the hold lifecycle
// come back as PaymentEventUnknown.
func (g *StripeGateway) VerifyEvent(payload []byte, signature string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	kind := domain.PaymentEventUnknown
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentAmountCapturableUpdated:
		// amount_capturable_updated is what a manual-capture intent emits
		// when the card authorization succeeds.
		kind = domain.PaymentEventHoldSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		kind = domain.PaymentEventHoldFailed
	case stripe.EventTypePaymentIntentCanceled:
		kind = domain.PaymentEventHoldCanceled
	}

	ev := &domain.PaymentEvent{ID: event.ID, Kind: kind}
	if kind != domain.PaymentEventUnknown {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent from event %s: %w", event.ID, err)
		}
		ev.PaymentIntentID = pi.ID
	}
	return ev, nil
}
