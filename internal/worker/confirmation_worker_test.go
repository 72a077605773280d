package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"seat-reserve-pro/internal/model"
	"seat-reserve-pro/internal/queue"
	apperrors "seat-reserve-pro/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*model.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[uuid.UUID]*model.Booking)}
}

func (r *memBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[booking.ID] = booking
	return nil
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	return booking, nil
}

func (r *memBookingRepo) ListCompletedByUser(_ context.Context, _ uuid.UUID) ([]*model.Booking, error) {
	return nil, nil
}

func (r *memBookingRepo) MarkEmailSent(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return apperrors.ErrBookingNotFound
	}
	booking.EmailSent = true
	return nil
}

func (r *memBookingRepo) emailSent(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	return ok && booking.EmailSent
}

// flakyMailer fails the first failures deliveries and succeeds afterwards.
type flakyMailer struct {
	mu       sync.Mutex
	failures int
	sent     []uuid.UUID
}

func (m *flakyMailer) SendConfirmation(_ context.Context, event *queue.ConfirmationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, event.BookingID)
	return nil
}

func (m *flakyMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestConfirmationWorker_MarksEmailSent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := newMemBookingRepo()
	booking := &model.Booking{ID: uuid.New(), PaymentStatus: model.PaymentStatusCompleted}
	require.NoError(t, repo.Create(ctx, booking))

	q := queue.NewMemoryNotificationQueue(4)
	mailer := &flakyMailer{}
	w := NewConfirmationWorker(q, mailer, repo)
	require.NoError(t, w.Start(ctx))

	require.NoError(t, q.PublishConfirmation(ctx, &queue.ConfirmationEvent{
		BookingID:  booking.ID,
		EventTitle: "Test Concert",
	}))

	waitFor(t, func() bool { return repo.emailSent(booking.ID) })
	assert.Equal(t, 1, mailer.sentCount())
}

func TestConfirmationWorker_RetriesAfterMailerFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := newMemBookingRepo()
	booking := &model.Booking{ID: uuid.New(), PaymentStatus: model.PaymentStatusCompleted}
	require.NoError(t, repo.Create(ctx, booking))

	q := queue.NewMemoryNotificationQueue(4)
	mailer := &flakyMailer{failures: 2}
	w := NewConfirmationWorker(q, mailer, repo)
	require.NoError(t, w.Start(ctx))

	require.NoError(t, q.PublishConfirmation(ctx, &queue.ConfirmationEvent{BookingID: booking.ID}))

	// The message is redelivered until the mailer recovers.
	waitFor(t, func() bool { return repo.emailSent(booking.ID) })
	assert.Equal(t, 1, mailer.sentCount())
}

func TestConfirmationWorker_RetriesWhenMarkFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := newMemBookingRepo()
	bookingID := uuid.New()

	q := queue.NewMemoryNotificationQueue(4)
	mailer := &flakyMailer{}
	w := NewConfirmationWorker(q, mailer, repo)
	require.NoError(t, w.Start(ctx))

	// The booking row does not exist yet, so MarkEmailSent fails and the
	// delivery is requeued. Creating the row lets a retry succeed.
	require.NoError(t, q.PublishConfirmation(ctx, &queue.ConfirmationEvent{BookingID: bookingID}))

	waitFor(t, func() bool { return mailer.sentCount() >= 1 })
	require.NoError(t, repo.Create(ctx, &model.Booking{ID: bookingID}))

	waitFor(t, func() bool { return repo.emailSent(bookingID) })
}
