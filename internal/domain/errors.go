package domain

import "errors"

var (
	ErrFlightNotFound        = errors.New("flight not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrSeatsUnavailable      = errors.New("not enough seats available")
	ErrDuplicateFlightNumber = errors.New("flight number already exists")
	ErrFlightHasBookings     = errors.New("flight has active bookings")
	ErrInvalidBookingState   = errors.New("operation not valid for booking state")
	ErrPaymentGateway        = errors.New("payment gateway call failed")
	ErrInvalidSignature      = errors.New("webhook signature verification failed")
)
