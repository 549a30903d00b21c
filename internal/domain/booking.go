package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusPaid      BookingStatus = "PAID"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusRefunded  BookingStatus = "REFUNDED"
)

// Terminal reports whether no further lifecycle transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusPaid || s == BookingStatusCancelled || s == BookingStatusRefunded
}

type Booking struct {
	ID                string
	FlightID          int64
	PassengerName     string
	PassengerEmail    string
	Seats             int
	AmountCents       int64
	Status            BookingStatus
	PaymentIntentID   string
	Refunded          bool
	RefundAmountCents int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
