package flights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/Arseniy92/charterpay/internal/repository"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	Search(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, update repository.FlightUpdate) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
}

type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type CreateFlightInput struct {
	FlightNumber  string
	Origin        string
	Destination   string
	DepartureTime string
	ArrivalTime   string
	PriceCents    int64
	TotalSeats    int
	MinimumSeats  int
}

type FlightService struct {
	repo  repository.FlightRepository
	cache Cache
	log   *zap.Logger
}

func NewFlightService(repo repository.FlightRepository, cache Cache, log *zap.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, log: log}
}

// Search serves the public catalog. Only the unfiltered listing is cached;
// filtered queries go straight to the store.
func (s *FlightService) Search(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	unfiltered := filter.Origin == "" && filter.Destination == "" && filter.Date == nil
	if unfiltered && s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	if unfiltered && s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.log.Warn("failed to cache flights", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	if input.FlightNumber == "" || input.Origin == "" || input.Destination == "" {
		return nil, errors.New("flight number, origin and destination are required")
	}
	if input.TotalSeats < 1 {
		return nil, errors.New("total seats must be at least 1")
	}
	if input.PriceCents < 0 {
		return nil, errors.New("price must not be negative")
	}

	departure, arrival, err := parseTimes(input.DepartureTime, input.ArrivalTime)
	if err != nil {
		return nil, err
	}

	minimum := input.MinimumSeats
	if minimum == 0 {
		minimum = 5
	}

	flight := &domain.Flight{
		FlightNumber:   input.FlightNumber,
		Origin:         input.Origin,
		Destination:    input.Destination,
		DepartureTime:  departure,
		ArrivalTime:    arrival,
		PriceCents:     input.PriceCents,
		TotalSeats:     input.TotalSeats,
		AvailableSeats: input.TotalSeats,
		SoldSeats:      0,
		MinimumSeats:   minimum,
		Status:         domain.FlightStatusScheduled,
	}
	if err := s.repo.Create(ctx, flight); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return flight, nil
}

func (s *FlightService) Update(ctx context.Context, id int64, update repository.FlightUpdate) (*domain.Flight, error) {
	if update.Empty() {
		return nil, errors.New("no updatable fields provided")
	}
	flight, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return flight, nil
}

func (s *FlightService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *FlightService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.log.Warn("failed to invalidate flights cache", zap.Error(err))
	}
}

func parseTimes(departure, arrival string) (time.Time, time.Time, error) {
	dep, err := time.Parse(time.RFC3339, departure)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid departure time: %w", err)
	}
	arr, err := time.Parse(time.RFC3339, arrival)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid arrival time: %w", err)
	}
	if !arr.After(dep) {
		return time.Time{}, time.Time{}, errors.New("arrival must be after departure")
	}
	return dep, arr, nil
}

var _ FlightUseCase = (*FlightService)(nil)
