package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/Arseniy92/charterpay/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) Search(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) Update(ctx context.Context, id int64, update repository.FlightUpdate) (*domain.Flight, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFlightRepository) ListDueForSweep(ctx context.Context, from, until time.Time) ([]domain.Flight, error) {
	args := m.Called(ctx, from, until)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) SetStatus(ctx context.Context, id int64, status domain.FlightStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Booking, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListRecent(ctx context.Context, limit int) ([]domain.Booking, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListActiveByFlight(ctx context.Context, flightID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ConfirmWithSeats(ctx context.Context, id string) (*domain.Booking, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Booking), args.Bool(1), args.Error(2)
}

func (m *MockBookingRepository) RefundWithSeats(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) MarkRefunded(ctx context.Context, id string, from domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) RefundBooking(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func newTestService(flights *MockFlightRepository, bookings *MockBookingRepository, lifecycle *MockLifecycle) *Service {
	svc := NewService(flights, bookings, lifecycle, 3*24*time.Hour, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSweep_RefundsAllBookingsBelowMinimum(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockBookings := &MockBookingRepository{}
	mockLifecycle := &MockLifecycle{}

	service := newTestService(mockFlights, mockBookings, mockLifecycle)
	ctx := context.Background()

	flight := domain.Flight{
		ID:           7,
		FlightNumber: "CP107",
		SoldSeats:    4,
		MinimumSeats: 5,
		Status:       domain.FlightStatusScheduled,
	}
	bookings := []domain.Booking{
		{ID: "b1", FlightID: 7, Status: domain.BookingStatusConfirmed},
		{ID: "b2", FlightID: 7, Status: domain.BookingStatusConfirmed},
		{ID: "b3", FlightID: 7, Status: domain.BookingStatusConfirmed},
		{ID: "b4", FlightID: 7, Status: domain.BookingStatusPending},
	}

	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mockFlights.On("ListDueForSweep", ctx, from, from.Add(3*24*time.Hour)).
		Return([]domain.Flight{flight}, nil).Once()
	mockBookings.On("ListActiveByFlight", ctx, int64(7)).Return(bookings, nil).Once()
	for _, b := range bookings {
		refunded := &domain.Booking{ID: b.ID, Status: domain.BookingStatusRefunded, Refunded: true, RefundAmountCents: 12500}
		mockLifecycle.On("RefundBooking", ctx, b.ID).Return(refunded, nil).Once()
	}
	mockFlights.On("SetStatus", ctx, int64(7), domain.FlightStatusRefunded).Return(nil).Once()

	report, err := service.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, report.FlightsChecked)
	assert.Len(t, report.Results, 4)
	for _, result := range report.Results {
		assert.Equal(t, ResultRefunded, result.Status)
		assert.Equal(t, "CP107", result.FlightNumber)
	}
	mockLifecycle.AssertExpectations(t)
	mockFlights.AssertExpectations(t)
}

func TestSweep_SkipsFlightsAtMinimum(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockBookings := &MockBookingRepository{}
	mockLifecycle := &MockLifecycle{}

	service := newTestService(mockFlights, mockBookings, mockLifecycle)
	ctx := context.Background()

	flight := domain.Flight{ID: 7, FlightNumber: "CP107", SoldSeats: 5, MinimumSeats: 5}
	mockFlights.On("ListDueForSweep", ctx, mock.Anything, mock.Anything).
		Return([]domain.Flight{flight}, nil).Once()

	report, err := service.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, report.FlightsChecked)
	assert.Empty(t, report.Results)
	mockBookings.AssertNotCalled(t, "ListActiveByFlight", mock.Anything, mock.Anything)
	mockFlights.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_OneFailureDoesNotStopOthers(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockBookings := &MockBookingRepository{}
	mockLifecycle := &MockLifecycle{}

	service := newTestService(mockFlights, mockBookings, mockLifecycle)
	ctx := context.Background()

	flight := domain.Flight{ID: 7, FlightNumber: "CP107", SoldSeats: 2, MinimumSeats: 5}
	bookings := []domain.Booking{
		{ID: "b1", FlightID: 7, Status: domain.BookingStatusConfirmed},
		{ID: "b2", FlightID: 7, Status: domain.BookingStatusConfirmed},
	}

	mockFlights.On("ListDueForSweep", ctx, mock.Anything, mock.Anything).
		Return([]domain.Flight{flight}, nil).Once()
	mockBookings.On("ListActiveByFlight", ctx, int64(7)).Return(bookings, nil).Once()
	mockLifecycle.On("RefundBooking", ctx, "b1").Return(nil, domain.ErrPaymentGateway).Once()
	mockLifecycle.On("RefundBooking", ctx, "b2").
		Return(&domain.Booking{ID: "b2", Status: domain.BookingStatusRefunded}, nil).Once()
	mockFlights.On("SetStatus", ctx, int64(7), domain.FlightStatusRefunded).Return(nil).Once()

	report, err := service.Run(ctx)

	assert.NoError(t, err)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, ResultFailed, report.Results[0].Status)
	assert.NotEmpty(t, report.Results[0].Error)
	assert.Equal(t, ResultRefunded, report.Results[1].Status)
	// The flight is still marked so failed bookings surface as follow-up work.
	mockFlights.AssertExpectations(t)
}

func TestSweep_ListFailureIsFatal(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockBookings := &MockBookingRepository{}
	mockLifecycle := &MockLifecycle{}

	service := newTestService(mockFlights, mockBookings, mockLifecycle)
	ctx := context.Background()

	mockFlights.On("ListDueForSweep", ctx, mock.Anything, mock.Anything).
		Return([]domain.Flight(nil), assert.AnError).Once()

	report, err := service.Run(ctx)

	assert.Error(t, err)
	assert.Nil(t, report)
}
