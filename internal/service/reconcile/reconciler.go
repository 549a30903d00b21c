package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/Arseniy92/charterpay/internal/repository"
	"go.uber.org/zap"
)

// Lifecycle is the slice of the booking engine the reconciler replays
// webhook events onto.
type Lifecycle interface {
	ConfirmBooking(ctx context.Context, id string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id string) (*domain.Booking, error)
	RefundReleasedBooking(ctx context.Context, id string) (*domain.Booking, error)
}

type EventDeduper interface {
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ClearEvent(ctx context.Context, eventID string) error
}

// Reconciler applies asynchronous payment-processor events to bookings.
// Delivery order is arbitrary and duplicates are expected, so every
// transition is guarded by the booking's current state; the redis dedup is
// only a fast path.
type Reconciler struct {
	bookings  repository.BookingRepository
	lifecycle Lifecycle
	deduper   EventDeduper
	dedupTTL  time.Duration
	log       *zap.Logger
}

func NewReconciler(
	bookings repository.BookingRepository,
	lifecycle Lifecycle,
	deduper EventDeduper,
	dedupTTL time.Duration,
	log *zap.Logger,
) *Reconciler {
	return &Reconciler{
		bookings:  bookings,
		lifecycle: lifecycle,
		deduper:   deduper,
		dedupTTL:  dedupTTL,
		log:       log,
	}
}

func (r *Reconciler) Apply(ctx context.Context, event domain.PaymentEvent) error {
	if event.Kind == domain.PaymentEventUnknown {
		r.log.Info("ignoring unhandled payment event", zap.String("event_id", event.ID))
		return nil
	}

	marked := false
	if r.deduper != nil && event.ID != "" {
		first, err := r.deduper.MarkEventProcessed(ctx, event.ID, r.dedupTTL)
		switch {
		case err != nil:
			r.log.Warn("event dedup unavailable, relying on state guards", zap.Error(err))
		case !first:
			r.log.Info("skipping duplicate payment event", zap.String("event_id", event.ID))
			return nil
		default:
			marked = true
		}
	}

	if err := r.dispatch(ctx, event); err != nil {
		// The processor redelivers on failure; drop the dedup mark so the
		// retry is not mistaken for a duplicate of the failed attempt.
		if marked {
			if clearErr := r.deduper.ClearEvent(ctx, event.ID); clearErr != nil {
				r.log.Warn("failed to clear event dedup mark",
					zap.String("event_id", event.ID), zap.Error(clearErr))
			}
		}
		return err
	}
	return nil
}

func (r *Reconciler) dispatch(ctx context.Context, event domain.PaymentEvent) error {
	booking, err := r.bookings.GetByPaymentIntentID(ctx, event.PaymentIntentID)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			// Not every hold maps to a booking (test events, other
			// products on the same account). Acknowledge and drop.
			r.log.Info("payment event references unknown hold",
				zap.String("event_id", event.ID),
				zap.String("payment_intent_id", event.PaymentIntentID))
			return nil
		}
		return err
	}

	switch event.Kind {
	case domain.PaymentEventHoldSucceeded:
		if booking.Status != domain.BookingStatusPending {
			return nil
		}
		_, err = r.lifecycle.ConfirmBooking(ctx, booking.ID)
	case domain.PaymentEventHoldFailed:
		if booking.Status != domain.BookingStatusPending {
			return nil
		}
		_, err = r.lifecycle.CancelBooking(ctx, booking.ID)
	case domain.PaymentEventHoldCanceled:
		if booking.Status != domain.BookingStatusPending {
			return nil
		}
		_, err = r.lifecycle.RefundReleasedBooking(ctx, booking.ID)
	}

	// A concurrent transition winning the race is the same as a duplicate
	// delivery: the event's effect is already in place.
	if errors.Is(err, domain.ErrInvalidBookingState) {
		r.log.Info("payment event already applied",
			zap.String("event_id", event.ID), zap.String("booking_id", booking.ID))
		return nil
	}
	return err
}
