package worker

import (
	"context"

	"seat-reserve-pro/internal/queue"
	"seat-reserve-pro/internal/repository"
	"seat-reserve-pro/pkg/logger"

	"go.uber.org/zap"
)

// Mailer delivers a booking confirmation to the attendee.
type Mailer interface {
	SendConfirmation(ctx context.Context, event *queue.ConfirmationEvent) error
}

// SimulatedMailer stands in for a real mail provider and only logs the
// delivery.
type SimulatedMailer struct{}

func NewSimulatedMailer() Mailer {
	return &SimulatedMailer{}
}

func (m *SimulatedMailer) SendConfirmation(_ context.Context, event *queue.ConfirmationEvent) error {
	logger.WithComponent("mailer").Info("sending ticket confirmation",
		zap.String("booking_id", event.BookingID.String()),
		zap.String("user_id", event.UserID.String()),
		zap.String("event_title", event.EventTitle),
		zap.Strings("seats", event.SeatIDs),
	)
	return nil
}

// ConfirmationWorker drains the notification queue, delivers the mail and
// marks the booking's email_sent flag. It runs entirely outside the
// reservation path: a failed delivery is retried via Nack and never
// affects booking outcome.
type ConfirmationWorker interface {
	Start(ctx context.Context) error
}

type ConfirmationWorkerImpl struct {
	queue       queue.NotificationQueue
	mailer      Mailer
	bookingRepo repository.BookingRepository
}

func NewConfirmationWorker(q queue.NotificationQueue, mailer Mailer, bookingRepo repository.BookingRepository) ConfirmationWorker {
	return &ConfirmationWorkerImpl{
		queue:       q,
		mailer:      mailer,
		bookingRepo: bookingRepo,
	}
}

func (w *ConfirmationWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeConfirmations(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			if err := w.process(ctx, msg.Data); err != nil {
				logger.WithComponent("worker").Warn("confirmation delivery failed, will retry",
					zap.String("booking_id", msg.Data.BookingID.String()), zap.Error(err))
				msg.Nack(true)
			} else {
				msg.Ack()
			}
		}
	}()
	return nil
}

func (w *ConfirmationWorkerImpl) process(ctx context.Context, event *queue.ConfirmationEvent) error {
	if err := w.mailer.SendConfirmation(ctx, event); err != nil {
		return err
	}
	return w.bookingRepo.MarkEmailSent(ctx, event.BookingID)
}
