package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConfirmationEvent is published after a booking's seats and ledger row
// are durably committed. It carries enough for downstream delivery without
// re-querying the database.
type ConfirmationEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	UserID      uuid.UUID `json:"user_id"`
	EventID     uuid.UUID `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	UserEmail   string    `json:"user_email"`
	SeatIDs     []string  `json:"seat_ids"`
	TotalAmount float64   `json:"total_amount"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type Delivery struct {
	Data *ConfirmationEvent
	Ack  func()
	Nack func(requeue bool)
}

type NotificationQueue interface {
	PublishConfirmation(ctx context.Context, event *ConfirmationEvent) error
	SubscribeConfirmations(ctx context.Context) (<-chan Delivery, error)
}

// MemoryNotificationQueue backs the queue with a buffered channel. It is
// used in tests and single-process deployments without Redis.
type MemoryNotificationQueue struct {
	ch chan *ConfirmationEvent
}

func NewMemoryNotificationQueue(bufferSize int) NotificationQueue {
	return &MemoryNotificationQueue{
		ch: make(chan *ConfirmationEvent, bufferSize),
	}
}

func (q *MemoryNotificationQueue) PublishConfirmation(ctx context.Context, event *ConfirmationEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryNotificationQueue) SubscribeConfirmations(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: event,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							q.ch <- event
						}
					},
				}
			}
		}
	}()

	return out, nil
}
