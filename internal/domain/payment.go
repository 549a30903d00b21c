package domain

// PaymentEventKind classifies asynchronous notifications from the payment
// processor. Only hold transitions matter to the booking lifecycle; anything
// else arrives as PaymentEventUnknown and is acknowledged without action.
type PaymentEventKind string

const (
	PaymentEventHoldSucceeded PaymentEventKind = "hold_succeeded"
	PaymentEventHoldFailed    PaymentEventKind = "hold_failed"
	PaymentEventHoldCanceled  PaymentEventKind = "hold_canceled"
	PaymentEventUnknown       PaymentEventKind = "unknown"
)

type PaymentEvent struct {
	ID              string
	Kind            PaymentEventKind
	PaymentIntentID string
}

// PaymentHold is the processor-side authorization referenced by a booking.
// Funds stay reserved until the hold is captured or released.
type PaymentHold struct {
	ID           string
	ClientSecret string
}
