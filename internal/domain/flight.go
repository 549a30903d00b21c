package domain

import "time"

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
	FlightStatusRefunded  FlightStatus = "REFUNDED"
)

type Flight struct {
	ID             int64
	FlightNumber   string
	Origin         string
	Destination    string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	PriceCents     int64
	TotalSeats     int
	AvailableSeats int
	SoldSeats      int
	MinimumSeats   int
	Status         FlightStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
