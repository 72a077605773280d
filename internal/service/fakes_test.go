package service_test

import (
	"context"
	"sync"

	"seat-reserve-pro/internal/model"
	"seat-reserve-pro/internal/payment"
	apperrors "seat-reserve-pro/pkg/app_errors"

	"github.com/google/uuid"
)

// fakeStore is an in-memory ReservationStore holding a single event's seat
// state. It mimics the storage guarantee: CommitReservation flips all
// seats or none.
type fakeStore struct {
	mu       sync.Mutex
	event    *model.Event
	bookings []*model.Booking

	commitErr   error
	declinedErr error
}

func newFakeStore(event *model.Event) *fakeStore {
	return &fakeStore{event: event}
}

func (s *fakeStore) LoadEventForUpdate(_ context.Context, eventID uuid.UUID) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.event == nil || s.event.ID != eventID || !s.event.IsActive {
		return nil, apperrors.ErrEventUnavailable
	}
	return copyEvent(s.event), nil
}

func (s *fakeStore) CommitReservation(_ context.Context, booking *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}

	taken := make([]string, 0)
	for _, bs := range booking.Seats {
		seat := s.event.SeatByID(bs.SeatID)
		if seat == nil || seat.IsBooked {
			taken = append(taken, bs.SeatID)
		}
	}
	if len(taken) > 0 {
		return &apperrors.SeatConflictError{SeatIDs: taken}
	}

	for _, bs := range booking.Seats {
		seat := s.event.SeatByID(bs.SeatID)
		seat.IsBooked = true
		userID := booking.UserID
		seat.BookedBy = &userID
	}
	s.event.SoldTickets += len(booking.Seats)
	s.bookings = append(s.bookings, booking)
	return nil
}

func (s *fakeStore) RecordDeclined(_ context.Context, booking *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.declinedErr != nil {
		return s.declinedErr
	}
	s.bookings = append(s.bookings, booking)
	return nil
}

func (s *fakeStore) snapshot() *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEvent(s.event)
}

func (s *fakeStore) ledger() []*model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out
}

func (s *fakeStore) setPrice(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.event.Price = price
}

func copyEvent(event *model.Event) *model.Event {
	clone := *event
	clone.Seats = make([]model.Seat, len(event.Seats))
	copy(clone.Seats, event.Seats)
	return &clone
}

type fakeBookingRepo struct {
	mu        sync.Mutex
	completed []*model.Booking
}

func (r *fakeBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, booking)
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.completed {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, apperrors.ErrBookingNotFound
}

func (r *fakeBookingRepo) ListCompletedByUser(_ context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Booking, 0)
	for _, b := range r.completed {
		if b.UserID == userID && b.PaymentStatus == model.PaymentStatusCompleted {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) MarkEmailSent(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.completed {
		if b.ID == id {
			b.EmailSent = true
			return nil
		}
	}
	return apperrors.ErrBookingNotFound
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

// stubGateway answers charges from a fixed script and counts invocations.
type stubGateway struct {
	mu      sync.Mutex
	approve bool
	err     error
	calls   int
}

func (g *stubGateway) Charge(_ context.Context, _ float64) (payment.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return payment.Result{}, g.err
	}
	if g.approve {
		return payment.Result{Approved: true, Reference: "PAY-stub"}, nil
	}
	return payment.Result{Approved: false, Reference: "FAIL-stub"}, nil
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
