package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightFilter struct {
	Origin      string
	Destination string
	Date        *time.Time
}

// FlightUpdate carries the allow-listed fields an admin may change. Nil
// pointers are left untouched; anything outside this set is rejected at the
// API boundary before it gets here.
type FlightUpdate struct {
	Origin        *string
	Destination   *string
	DepartureTime *time.Time
	ArrivalTime   *time.Time
	PriceCents    *int64
	MinimumSeats  *int
	Status        *domain.FlightStatus
}

func (u FlightUpdate) Empty() bool {
	return u.Origin == nil && u.Destination == nil && u.DepartureTime == nil &&
		u.ArrivalTime == nil && u.PriceCents == nil && u.MinimumSeats == nil && u.Status == nil
}

type FlightRepository interface {
	Search(ctx context.Context, filter FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, flight *domain.Flight) error
	Update(ctx context.Context, id int64, update FlightUpdate) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
	ListDueForSweep(ctx context.Context, from, until time.Time) ([]domain.Flight, error)
	SetStatus(ctx context.Context, id int64, status domain.FlightStatus) error
}

const flightColumns = `id, flight_number, origin, destination, departure_time, arrival_time, price_cents, total_seats, available_seats, sold_seats, minimum_seats, status, created_at, updated_at`

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func scanFlight(row pgx.Row, f *domain.Flight) error {
	return row.Scan(&f.ID, &f.FlightNumber, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime,
		&f.PriceCents, &f.TotalSeats, &f.AvailableSeats, &f.SoldSeats, &f.MinimumSeats, &f.Status,
		&f.CreatedAt, &f.UpdatedAt)
}

func (r *PGFlightRepository) Search(ctx context.Context, filter FlightFilter) ([]domain.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights WHERE status=$1 AND available_seats > 0`
	args := []interface{}{domain.FlightStatusScheduled}

	if filter.Origin != "" {
		args = append(args, "%"+filter.Origin+"%")
		query += fmt.Sprintf(" AND origin ILIKE $%d", len(args))
	}
	if filter.Destination != "" {
		args = append(args, "%"+filter.Destination+"%")
		query += fmt.Sprintf(" AND destination ILIKE $%d", len(args))
	}
	if filter.Date != nil {
		day := filter.Date.Truncate(24 * time.Hour)
		args = append(args, day)
		query += fmt.Sprintf(" AND departure_time >= $%d", len(args))
		args = append(args, day.Add(24*time.Hour))
		query += fmt.Sprintf(" AND departure_time < $%d", len(args))
	}
	query += " ORDER BY departure_time"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := scanFlight(rows, &f); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	var f domain.Flight
	if err := scanFlight(row, &f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	err := r.db.QueryRow(ctx, `INSERT INTO flights (flight_number, origin, destination, departure_time, arrival_time, price_cents, total_seats, available_seats, sold_seats, minimum_seats, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		flight.FlightNumber, flight.Origin, flight.Destination, flight.DepartureTime, flight.ArrivalTime,
		flight.PriceCents, flight.TotalSeats, flight.AvailableSeats, flight.SoldSeats, flight.MinimumSeats, flight.Status).
		Scan(&flight.ID, &flight.CreatedAt, &flight.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateFlightNumber
		}
		return err
	}
	return nil
}

func (r *PGFlightRepository) Update(ctx context.Context, id int64, update FlightUpdate) (*domain.Flight, error) {
	set := []string{"updated_at = now()"}
	args := []interface{}{id}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Origin != nil {
		add("origin", *update.Origin)
	}
	if update.Destination != nil {
		add("destination", *update.Destination)
	}
	if update.DepartureTime != nil {
		add("departure_time", *update.DepartureTime)
	}
	if update.ArrivalTime != nil {
		add("arrival_time", *update.ArrivalTime)
	}
	if update.PriceCents != nil {
		add("price_cents", *update.PriceCents)
	}
	if update.MinimumSeats != nil {
		add("minimum_seats", *update.MinimumSeats)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}

	query := `UPDATE flights SET ` + strings.Join(set, ", ") + ` WHERE id=$1 RETURNING ` + flightColumns
	row := r.db.QueryRow(ctx, query, args...)
	var f domain.Flight
	if err := scanFlight(row, &f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Delete removes a flight, but only while no booking on it is still in a
// non-terminal state. The check and the delete run in one transaction so a
// concurrent booking cannot slip in between.
func (r *PGFlightRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var active int
	err = tx.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE flight_id=$1 AND status IN ($2, $3)`,
		id, domain.BookingStatusPending, domain.BookingStatusConfirmed).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return domain.ErrFlightHasBookings
	}

	res, err := tx.Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return tx.Commit(ctx)
}

func (r *PGFlightRepository) ListDueForSweep(ctx context.Context, from, until time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights WHERE status=$1 AND departure_time >= $2 AND departure_time <= $3 ORDER BY departure_time`,
		domain.FlightStatusScheduled, from, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := scanFlight(rows, &f); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) SetStatus(ctx context.Context, id int64, status domain.FlightStatus) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET status=$1, updated_at=now() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
