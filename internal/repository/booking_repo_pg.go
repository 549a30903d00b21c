package repository

import (
	"context"
	"errors"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	CreatePending(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Booking, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Booking, error)
	ListActiveByFlight(ctx context.Context, flightID int64) ([]domain.Booking, error)
	ConfirmWithSeats(ctx context.Context, id string) (*domain.Booking, bool, error)
	RefundWithSeats(ctx context.Context, id string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error)
	MarkRefunded(ctx context.Context, id string, from domain.BookingStatus) (*domain.Booking, error)
}

const bookingColumns = `id, flight_id, passenger_name, passenger_email, seats, amount_cents, status, payment_intent_id, refunded, refund_amount_cents, created_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func scanBooking(row pgx.Row, b *domain.Booking) error {
	return row.Scan(&b.ID, &b.FlightID, &b.PassengerName, &b.PassengerEmail, &b.Seats, &b.AmountCents,
		&b.Status, &b.PaymentIntentID, &b.Refunded, &b.RefundAmountCents, &b.CreatedAt, &b.UpdatedAt)
}

// CreatePending inserts a new PENDING booking. Seat counters are not
// touched here; they only move at confirmation time. The availability check
// still has to be atomic, so the flight row is locked and seats already held
// by other PENDING bookings are counted against it. Two concurrent creates
// racing for the last seat serialize on the row lock and the loser gets
// ErrSeatsUnavailable.
func (r *PGBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var free int
	err = tx.QueryRow(ctx, `SELECT f.available_seats - COALESCE((SELECT SUM(b.seats) FROM bookings b WHERE b.flight_id = f.id AND b.status = $2), 0)
		FROM flights f WHERE f.id = $1 FOR UPDATE`,
		booking.FlightID, domain.BookingStatusPending).Scan(&free)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrFlightNotFound
		}
		return err
	}
	if free < booking.Seats {
		return domain.ErrSeatsUnavailable
	}

	booking.Status = domain.BookingStatusPending
	err = tx.QueryRow(ctx, `INSERT INTO bookings (id, flight_id, passenger_name, passenger_email, seats, amount_cents, status, payment_intent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		booking.ID, booking.FlightID, booking.PassengerName, booking.PassengerEmail,
		booking.Seats, booking.AmountCents, booking.Status, booking.PaymentIntentID).
		Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_intent_id=$1`, paymentIntentID)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) ListRecent(ctx context.Context, limit int) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ListActiveByFlight(ctx context.Context, flightID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE flight_id=$1 AND status IN ($2, $3) AND refunded = false ORDER BY created_at`,
		flightID, domain.BookingStatusPending, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ConfirmWithSeats is the seat-commitment point: the booking moves to
// CONFIRMED and the flight counters shift in the same transaction. A booking
// that is already CONFIRMED is returned unchanged with committed=false, so
// the call is safe to repeat from both the client confirm endpoint and the
// webhook.
func (r *PGBookingRepository) ConfirmWithSeats(ctx context.Context, id string) (*domain.Booking, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, domain.ErrBookingNotFound
		}
		return nil, false, err
	}

	if b.Status == domain.BookingStatusConfirmed {
		return &b, false, nil
	}
	if b.Status != domain.BookingStatusPending {
		return nil, false, domain.ErrInvalidBookingState
	}

	res, err := tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats - $1, sold_seats = sold_seats + $1, updated_at = now()
		WHERE id=$2 AND available_seats >= $1`, b.Seats, b.FlightID)
	if err != nil {
		return nil, false, err
	}
	if res.RowsAffected() == 0 {
		return nil, false, domain.ErrSeatsUnavailable
	}

	row = tx.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns,
		domain.BookingStatusConfirmed, id)
	if err := scanBooking(row, &b); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return &b, true, nil
}

// RefundWithSeats terminates a CONFIRMED booking and gives its seats back to
// the flight, both in one transaction.
func (r *PGBookingRepository) RefundWithSeats(ctx context.Context, id string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	if b.Status != domain.BookingStatusConfirmed {
		return nil, domain.ErrInvalidBookingState
	}

	if _, err := tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats + $1, sold_seats = sold_seats - $1, updated_at = now() WHERE id=$2`,
		b.Seats, b.FlightID); err != nil {
		return nil, err
	}

	row = tx.QueryRow(ctx, `UPDATE bookings SET status=$1, refunded=true, refund_amount_cents=amount_cents, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns,
		domain.BookingStatusRefunded, id)
	if err := scanBooking(row, &b); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateStatus performs a guarded transition: the row only changes if it is
// still in the expected state.
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 AND status=$3 RETURNING `+bookingColumns, to, id, from)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.transitionError(ctx, id)
		}
		return nil, err
	}
	return &b, nil
}

// MarkRefunded terminates a booking whose seats were never committed, so the
// flight counters stay untouched.
func (r *PGBookingRepository) MarkRefunded(ctx context.Context, id string, from domain.BookingStatus) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, refunded=true, refund_amount_cents=amount_cents, updated_at=now() WHERE id=$2 AND status=$3 RETURNING `+bookingColumns,
		domain.BookingStatusRefunded, id, from)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.transitionError(ctx, id)
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) transitionError(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrBookingNotFound
	}
	return domain.ErrInvalidBookingState
}

var _ BookingRepository = (*PGBookingRepository)(nil)
