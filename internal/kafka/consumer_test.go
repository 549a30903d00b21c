package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newQueuedConsumer(payloads [][]byte, tail error) *Consumer {
	next := 0
	return &Consumer{
		log: zap.NewNop(),
		read: func(ctx context.Context) (kafka.Message, error) {
			if next < len(payloads) {
				msg := kafka.Message{Value: payloads[next], Offset: int64(next)}
				next++
				return msg, nil
			}
			if tail != nil {
				return kafka.Message{}, tail
			}
			return kafka.Message{}, context.Canceled
		},
	}
}

func eventBytes(t *testing.T, event BookingEvent) []byte {
	t.Helper()
	payload, err := json.Marshal(event)
	assert.NoError(t, err)
	return payload
}

func TestConsumer_HandlerFailureDoesNotStopConsumption(t *testing.T) {
	payloads := [][]byte{
		eventBytes(t, BookingEvent{Type: "booking.confirmed", BookingID: "b-1"}),
		eventBytes(t, BookingEvent{Type: "booking.confirmed", BookingID: "b-2"}),
		eventBytes(t, BookingEvent{Type: "booking.refunded", BookingID: "b-3"}),
	}
	consumer := newQueuedConsumer(payloads, nil)

	var handled []string
	err := consumer.ConsumeEvents(context.Background(), func(ctx context.Context, event BookingEvent) error {
		handled = append(handled, event.BookingID)
		if event.BookingID == "b-1" {
			return assert.AnError
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"b-1", "b-2", "b-3"}, handled)
}

func TestConsumer_SkipsUndecodablePayload(t *testing.T) {
	payloads := [][]byte{
		[]byte("not json"),
		eventBytes(t, BookingEvent{Type: "booking.confirmed", BookingID: "b-9"}),
	}
	consumer := newQueuedConsumer(payloads, nil)

	var handled []string
	err := consumer.ConsumeEvents(context.Background(), func(ctx context.Context, event BookingEvent) error {
		handled = append(handled, event.BookingID)
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"b-9"}, handled)
}

func TestConsumer_ReaderErrorReturned(t *testing.T) {
	consumer := newQueuedConsumer(nil, assert.AnError)

	err := consumer.ConsumeEvents(context.Background(), func(ctx context.Context, event BookingEvent) error {
		t.Fatal("handler should not be called")
		return nil
	})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestConsumer_ContextCanceledIsCleanStop(t *testing.T) {
	consumer := newQueuedConsumer(nil, nil)

	err := consumer.ConsumeEvents(context.Background(), func(ctx context.Context, event BookingEvent) error {
		return nil
	})

	assert.NoError(t, err)
}
