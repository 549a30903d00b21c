package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/Arseniy92/charterpay/internal/kafka"
	"github.com/Arseniy92/charterpay/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingUseCase is the lifecycle engine for a single booking:
//
//	PENDING --confirm--> CONFIRMED --capture--> PAID
//	PENDING --hold failed--> CANCELLED
//	PENDING --refund / hold canceled--> REFUNDED (no seat change)
//	CONFIRMED --refund--> REFUNDED (seats restored)
//
// Money moves through an authorization hold: CreateBooking only reserves
// funds, ConfirmBooking commits seats, CaptureBooking converts the hold into
// a charge once the flight's minimum is safe.
type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error)
	ConfirmBooking(ctx context.Context, id string) (*domain.Booking, error)
	CaptureBooking(ctx context.Context, id string) (*domain.Booking, error)
	RefundBooking(ctx context.Context, id string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id string) (*domain.Booking, error)
	RefundReleasedBooking(ctx context.Context, id string) (*domain.Booking, error)
}

type FlightGetter interface {
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

type PaymentGateway interface {
	CreateHold(ctx context.Context, amountCents int64, metadata map[string]string) (*domain.PaymentHold, error)
	CaptureHold(ctx context.Context, holdID string) error
	CancelHold(ctx context.Context, holdID string) error
	Refund(ctx context.Context, holdID string, amountCents int64) error
}

type Cache interface {
	InvalidateFlights(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	flights            FlightGetter
	gateway            PaymentGateway
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	log                *zap.Logger
}

type CreateBookingInput struct {
	FlightID       int64  `json:"flight_id"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email"`
	Seats          int    `json:"seats"`
}

type CreateBookingResult struct {
	Booking      *domain.Booking
	ClientSecret string
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights FlightGetter,
	gateway PaymentGateway,
	cache Cache,
	producer Producer,
	bookingTopic string,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		flights:      flights,
		gateway:      gateway,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		log:          log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking reserves funds but not seats: the hold is created first and
// the booking lands in PENDING. Seats only move at confirmation, so an
// abandoned or declined payment never blocks inventory.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error) {
	if input.Seats < 1 {
		return nil, errors.New("seats must be at least 1")
	}
	if input.PassengerName == "" || input.PassengerEmail == "" {
		return nil, errors.New("passenger name and email are required")
	}

	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	if flight.AvailableSeats < input.Seats {
		return nil, domain.ErrSeatsUnavailable
	}

	amount := flight.PriceCents * int64(input.Seats)
	bookingID := uuid.NewString()

	hold, err := s.gateway.CreateHold(ctx, amount, map[string]string{
		"booking_id":    bookingID,
		"flight_id":     fmt.Sprintf("%d", flight.ID),
		"flight_number": flight.FlightNumber,
		"seats":         fmt.Sprintf("%d", input.Seats),
	})
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ID:              bookingID,
		FlightID:        flight.ID,
		PassengerName:   input.PassengerName,
		PassengerEmail:  input.PassengerEmail,
		Seats:           input.Seats,
		AmountCents:     amount,
		PaymentIntentID: hold.ID,
	}

	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		// The hold exists but the booking does not; release the funds so
		// the passenger is not left with a dangling authorization.
		if cancelErr := s.gateway.CancelHold(ctx, hold.ID); cancelErr != nil {
			s.log.Warn("failed to cancel orphaned hold",
				zap.String("hold_id", hold.ID), zap.Error(cancelErr))
		}
		return nil, err
	}

	s.publish(ctx, "booking_created", booking)
	return &CreateBookingResult{Booking: booking, ClientSecret: hold.ClientSecret}, nil
}

// ConfirmBooking is the seat-commitment point. It is idempotent: the client
// confirm call and the webhook both invoke it, whichever lands first commits
// the seats and the other is a no-op.
func (s *BookingService) ConfirmBooking(ctx context.Context, id string) (*domain.Booking, error) {
	booking, committed, err := s.bookings.ConfirmWithSeats(ctx, id)
	if err != nil {
		return nil, err
	}
	if committed {
		s.invalidateFlights(ctx)
		s.publish(ctx, "booking_confirmed", booking)
	}
	return booking, nil
}

// CaptureBooking converts the hold into an actual charge. The local PAID
// transition happens only after the gateway accepted the capture; a gateway
// failure leaves the booking CONFIRMED for retry.
func (s *BookingService) CaptureBooking(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, domain.ErrInvalidBookingState
	}

	if err := s.gateway.CaptureHold(ctx, booking.PaymentIntentID); err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, domain.BookingStatusConfirmed, domain.BookingStatusPaid)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "booking_captured", updated)
	return updated, nil
}

// RefundBooking reverses whatever the booking has committed so far. A
// PENDING booking only has a hold, so the hold is released and seat counters
// stay untouched. A CONFIRMED booking gets a full refund and its seats back.
// Gateway failures leave the prior state intact so the call can be retried.
func (s *BookingService) RefundBooking(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case domain.BookingStatusPending:
		if err := s.gateway.CancelHold(ctx, booking.PaymentIntentID); err != nil {
			return nil, err
		}
		updated, err := s.bookings.MarkRefunded(ctx, id, domain.BookingStatusPending)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, "booking_refunded", updated)
		return updated, nil

	case domain.BookingStatusConfirmed:
		if err := s.gateway.Refund(ctx, booking.PaymentIntentID, booking.AmountCents); err != nil {
			return nil, err
		}
		updated, err := s.bookings.RefundWithSeats(ctx, id)
		if err != nil {
			return nil, err
		}
		s.invalidateFlights(ctx)
		s.publish(ctx, "booking_refunded", updated)
		return updated, nil

	default:
		return nil, domain.ErrInvalidBookingState
	}
}

// CancelBooking records that the hold failed upstream. No seats were ever
// committed and no funds moved, so this is a pure status transition.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*domain.Booking, error) {
	updated, err := s.bookings.UpdateStatus(ctx, id, domain.BookingStatusPending, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "booking_cancelled", updated)
	return updated, nil
}

// RefundReleasedBooking records a hold that was canceled on the processor
// side (the webhook's view of a PENDING refund). No gateway call is made,
// the hold is already gone; seat counters stay untouched.
func (s *BookingService) RefundReleasedBooking(ctx context.Context, id string) (*domain.Booking, error) {
	updated, err := s.bookings.MarkRefunded(ctx, id, domain.BookingStatusPending)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "booking_refunded", updated)
	return updated, nil
}

func (s *BookingService) invalidateFlights(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.log.Warn("failed to invalidate flights cache", zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:              eventType,
		BookingID:         booking.ID,
		FlightID:          booking.FlightID,
		Seats:             booking.Seats,
		PassengerEmail:    booking.PassengerEmail,
		Status:            string(booking.Status),
		AmountCents:       booking.AmountCents,
		RefundAmountCents: booking.RefundAmountCents,
		OccurredAt:        time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.ID, event); err != nil {
		s.log.Warn("failed to publish booking event",
			zap.String("type", eventType), zap.String("booking_id", booking.ID), zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.ID, event); err != nil {
			s.log.Warn("failed to publish notification event",
				zap.String("type", eventType), zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
