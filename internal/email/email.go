package email

import (
	"context"
	"fmt"

	"github.com/Arseniy92/charterpay/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("send email to %s about %s for booking %s on flight %d\n",
		event.PassengerEmail, event.Type, event.BookingID, event.FlightID)
	return nil
}
