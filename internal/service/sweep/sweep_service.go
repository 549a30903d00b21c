package sweep

import (
	"context"
	"time"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/Arseniy92/charterpay/internal/repository"
	"go.uber.org/zap"
)

// Lifecycle is the slice of the booking engine the sweep drives.
type Lifecycle interface {
	RefundBooking(ctx context.Context, id string) (*domain.Booking, error)
}

// Result is the outcome for a single booking touched by a sweep run.
type Result struct {
	BookingID         string `json:"booking_id"`
	FlightNumber      string `json:"flight_number"`
	Status            string `json:"status"`
	RefundAmountCents int64  `json:"refund_amount_cents,omitempty"`
	Error             string `json:"error,omitempty"`
}

const (
	ResultRefunded = "refunded"
	ResultFailed   = "failed"
)

type Report struct {
	Results        []Result `json:"results"`
	FlightsChecked int      `json:"flights_checked"`
}

// Service scans flights approaching departure and unwinds every active
// booking on flights that missed their minimum-seats threshold.
type Service struct {
	flights   repository.FlightRepository
	bookings  repository.BookingRepository
	lifecycle Lifecycle
	lookahead time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func NewService(
	flights repository.FlightRepository,
	bookings repository.BookingRepository,
	lifecycle Lifecycle,
	lookahead time.Duration,
	log *zap.Logger,
) *Service {
	return &Service{
		flights:   flights,
		bookings:  bookings,
		lifecycle: lifecycle,
		lookahead: lookahead,
		now:       time.Now,
		log:       log,
	}
}

// Run evaluates every SCHEDULED flight departing inside the lookahead
// window. A single booking's refund failure is recorded and skipped, never
// fatal: the flight is still marked REFUNDED so the failure list is the
// manual follow-up queue.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	now := s.now()
	flights, err := s.flights.ListDueForSweep(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return nil, err
	}

	report := &Report{
		Results:        make([]Result, 0),
		FlightsChecked: len(flights),
	}

	for _, flight := range flights {
		if flight.SoldSeats >= flight.MinimumSeats {
			continue
		}

		s.log.Info("flight below minimum seats, refunding bookings",
			zap.String("flight_number", flight.FlightNumber),
			zap.Int("sold_seats", flight.SoldSeats),
			zap.Int("minimum_seats", flight.MinimumSeats))

		bookings, err := s.bookings.ListActiveByFlight(ctx, flight.ID)
		if err != nil {
			s.log.Error("failed to list bookings for flight",
				zap.String("flight_number", flight.FlightNumber), zap.Error(err))
			continue
		}

		for _, b := range bookings {
			refunded, err := s.lifecycle.RefundBooking(ctx, b.ID)
			if err != nil {
				s.log.Warn("failed to refund booking",
					zap.String("booking_id", b.ID), zap.Error(err))
				report.Results = append(report.Results, Result{
					BookingID:    b.ID,
					FlightNumber: flight.FlightNumber,
					Status:       ResultFailed,
					Error:        err.Error(),
				})
				continue
			}
			report.Results = append(report.Results, Result{
				BookingID:         refunded.ID,
				FlightNumber:      flight.FlightNumber,
				Status:            ResultRefunded,
				RefundAmountCents: refunded.RefundAmountCents,
			})
		}

		if err := s.flights.SetStatus(ctx, flight.ID, domain.FlightStatusRefunded); err != nil {
			s.log.Error("failed to mark flight refunded",
				zap.String("flight_number", flight.FlightNumber), zap.Error(err))
		}
	}

	return report, nil
}
