package service

import (
	"context"
	"time"

	"seat-reserve-pro/internal/cache"
	"seat-reserve-pro/internal/model"
	"seat-reserve-pro/internal/payment"
	"seat-reserve-pro/internal/queue"
	"seat-reserve-pro/internal/repository"
	apperrors "seat-reserve-pro/pkg/app_errors"
	"seat-reserve-pro/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationService interface {
	// Reserve validates the seat selection, charges the gateway and
	// commits seat state plus ledger row. Declines come back as a result
	// with Retriable set, not as an error.
	Reserve(ctx context.Context, userID uuid.UUID, req model.ReserveRequest) (*model.ReservationResult, error)
	MyBookings(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error)
}

type ReservationServiceImpl struct {
	store         repository.ReservationStore
	bookingRepo   repository.BookingRepository
	userRepo      repository.UserRepository
	gateway       payment.Gateway
	notifications queue.NotificationQueue
	seatCache     cache.SeatMapCache
	locks         *eventLocks
}

// NewReservationService wires the engine. notifications and seatCache may
// be nil; both are best-effort side channels.
func NewReservationService(
	store repository.ReservationStore,
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	gateway payment.Gateway,
	notifications queue.NotificationQueue,
	seatCache cache.SeatMapCache,
) ReservationService {
	return &ReservationServiceImpl{
		store:         store,
		bookingRepo:   bookingRepo,
		userRepo:      userRepo,
		gateway:       gateway,
		notifications: notifications,
		seatCache:     seatCache,
		locks:         newEventLocks(),
	}
}

func (s *ReservationServiceImpl) Reserve(ctx context.Context, userID uuid.UUID, req model.ReserveRequest) (*model.ReservationResult, error) {
	// Duplicate ids in one request collapse to a single seat request,
	// keeping first-appearance order.
	seatIDs := dedupeSeatIDs(req.SeatIDs)

	// The whole check-charge-commit section holds the event lock, so the
	// availability check cannot go stale before the commit. The losing
	// side of a race conflicts here before its charge is ever attempted.
	result, eventTitle, err := s.reserveLocked(ctx, userID, req.EventID, seatIDs)
	if err != nil {
		return nil, err
	}

	// Side effects run after the lock is released and after the commit is
	// durable; neither can affect the booking outcome.
	if result.Confirmed {
		s.invalidateSeatMap(req.EventID)
		s.publishConfirmation(userID, req.EventID, eventTitle, result.Booking)
	}

	return result, nil
}

func (s *ReservationServiceImpl) reserveLocked(ctx context.Context, userID, eventID uuid.UUID, seatIDs []string) (*model.ReservationResult, string, error) {
	unlock := s.locks.Lock(eventID)
	defer unlock()

	event, err := s.store.LoadEventForUpdate(ctx, eventID)
	if err != nil {
		return nil, "", err
	}
	if !event.IsActive {
		return nil, "", apperrors.ErrEventUnavailable
	}
	if len(seatIDs) == 0 {
		return nil, "", apperrors.ErrInvalidSeatSelection
	}

	unknown := make([]string, 0)
	taken := make([]string, 0)
	for _, seatID := range seatIDs {
		seat := event.SeatByID(seatID)
		switch {
		case seat == nil:
			unknown = append(unknown, seatID)
		case seat.IsBooked:
			taken = append(taken, seatID)
		}
	}
	if len(unknown) > 0 {
		return nil, "", apperrors.ErrInvalidSeatSelection
	}
	if len(taken) > 0 {
		return nil, "", &apperrors.SeatConflictError{SeatIDs: taken}
	}

	// Price is locked into the booking now; later event edits never
	// retouch it.
	seats := make([]model.BookedSeat, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		seats = append(seats, model.BookedSeat{SeatID: seatID, Price: event.Price})
	}
	booking := &model.Booking{
		ID:            uuid.New(),
		UserID:        userID,
		EventID:       event.ID,
		Seats:         seats,
		TotalAmount:   event.Price * float64(len(seatIDs)),
		PaymentStatus: model.PaymentStatusPending,
	}

	charge, err := s.gateway.Charge(ctx, booking.TotalAmount)
	if err != nil {
		// A gateway failure (timeout, cancellation) is a declined,
		// retriable outcome; the seats were never marked.
		logger.WithComponent("engine").Warn("charge failed",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
		charge = payment.Result{Approved: false}
	}
	booking.PaymentRef = charge.Reference

	if !charge.Approved {
		booking.PaymentStatus = model.PaymentStatusFailed
		if err := s.store.RecordDeclined(ctx, booking); err != nil {
			return nil, "", err
		}
		return &model.ReservationResult{
			Confirmed: false,
			Booking:   booking,
			Retriable: true,
		}, event.Title, nil
	}

	booking.PaymentStatus = model.PaymentStatusCompleted
	if err := s.store.CommitReservation(ctx, booking); err != nil {
		// The charge was approved but nothing was committed. There is no
		// compensation step; the payment reference is logged so the
		// ledger can be reconciled.
		logger.WithComponent("engine").Error("commit failed after approved charge",
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_ref", booking.PaymentRef),
			zap.Error(err))
		return nil, "", err
	}

	summary := event.Summary()
	summary.SoldTickets += len(seatIDs)
	return &model.ReservationResult{
		Confirmed:    true,
		Booking:      booking,
		EventDetails: &summary,
	}, event.Title, nil
}

func (s *ReservationServiceImpl) MyBookings(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	return s.bookingRepo.ListCompletedByUser(ctx, userID)
}

func (s *ReservationServiceImpl) invalidateSeatMap(eventID uuid.UUID) {
	if s.seatCache == nil {
		return
	}
	if err := s.seatCache.Invalidate(context.Background(), eventID); err != nil {
		logger.WithComponent("engine").Warn("seat map invalidation failed",
			zap.String("event_id", eventID.String()), zap.Error(err))
	}
}

// publishConfirmation uses context.Background(): the booking is already
// committed, so an aborted request must not drop the notification.
func (s *ReservationServiceImpl) publishConfirmation(userID, eventID uuid.UUID, eventTitle string, booking *model.Booking) {
	if s.notifications == nil {
		return
	}

	ctx := context.Background()
	email := ""
	if s.userRepo != nil {
		if user, err := s.userRepo.FindByID(ctx, userID); err == nil {
			email = user.Email
		}
	}

	seatIDs := make([]string, 0, len(booking.Seats))
	for _, seat := range booking.Seats {
		seatIDs = append(seatIDs, seat.SeatID)
	}
	event := &queue.ConfirmationEvent{
		BookingID:   booking.ID,
		UserID:      userID,
		EventID:     eventID,
		EventTitle:  eventTitle,
		UserEmail:   email,
		SeatIDs:     seatIDs,
		TotalAmount: booking.TotalAmount,
		ConfirmedAt: time.Now().UTC(),
	}
	if err := s.notifications.PublishConfirmation(ctx, event); err != nil {
		logger.WithComponent("engine").Warn("confirmation publish failed",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
	}
}

func dedupeSeatIDs(seatIDs []string) []string {
	unique := make([]string, 0, len(seatIDs))
	seen := make(map[string]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	return unique
}
