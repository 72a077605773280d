package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"seat-reserve-pro/internal/model"
	"seat-reserve-pro/internal/queue"
	"seat-reserve-pro/internal/service"
	apperrors "seat-reserve-pro/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent(capacity int, price float64) *model.Event {
	return &model.Event{
		ID:          uuid.New(),
		Title:       "Test Concert",
		StartsAt:    time.Now().Add(24 * time.Hour),
		Venue:       "Main Hall",
		Capacity:    capacity,
		Price:       price,
		Description: "test",
		IsActive:    true,
		Seats:       model.GenerateSeats(capacity),
	}
}

func newEngine(store *fakeStore, approve bool) (service.ReservationService, *stubGateway, *fakeBookingRepo) {
	gateway := &stubGateway{approve: approve}
	bookingRepo := &fakeBookingRepo{}
	engine := service.NewReservationService(store, bookingRepo, newFakeUserRepo(), gateway, nil, nil)
	return engine, gateway, bookingRepo
}

func TestReserve_Success(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(3, 10)
	store := newFakeStore(event)
	engine, _, _ := newEngine(store, true)
	userID := uuid.New()

	result, err := engine.Reserve(ctx, userID, model.ReserveRequest{
		EventID: event.ID,
		SeatIDs: []string{"S1", "S2"},
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Confirmed)
	assert.Equal(t, model.PaymentStatusCompleted, result.Booking.PaymentStatus)
	assert.Equal(t, 20.0, result.Booking.TotalAmount)
	assert.Equal(t, "Test Concert", result.EventDetails.Title)
	assert.Equal(t, 2, result.EventDetails.SoldTickets)

	after := store.snapshot()
	assert.Equal(t, 2, after.SoldTickets)
	assert.True(t, after.SeatByID("S1").IsBooked)
	assert.True(t, after.SeatByID("S2").IsBooked)
	assert.False(t, after.SeatByID("S3").IsBooked)
	require.NotNil(t, after.SeatByID("S1").BookedBy)
	assert.Equal(t, userID, *after.SeatByID("S1").BookedBy)
}

func TestReserve_EventUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown event", func(t *testing.T) {
		store := newFakeStore(newTestEvent(3, 10))
		engine, gateway, _ := newEngine(store, true)

		_, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
			EventID: uuid.New(),
			SeatIDs: []string{"S1"},
		})

		assert.ErrorIs(t, err, apperrors.ErrEventUnavailable)
		assert.Equal(t, 0, gateway.callCount())
	})

	t.Run("inactive event", func(t *testing.T) {
		event := newTestEvent(3, 10)
		event.IsActive = false
		store := newFakeStore(event)
		engine, gateway, _ := newEngine(store, true)

		_, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
			EventID: event.ID,
			SeatIDs: []string{"S1"},
		})

		assert.ErrorIs(t, err, apperrors.ErrEventUnavailable)
		assert.Equal(t, 0, gateway.callCount())
	})
}

func TestReserve_InvalidSeatSelection(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(3, 10)
	store := newFakeStore(event)
	engine, gateway, _ := newEngine(store, true)

	t.Run("unknown seat id", func(t *testing.T) {
		_, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
			EventID: event.ID,
			SeatIDs: []string{"S99"},
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidSeatSelection)
	})

	t.Run("empty selection", func(t *testing.T) {
		_, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
			EventID: event.ID,
			SeatIDs: []string{},
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidSeatSelection)
	})

	// No booking is recorded and no charge attempted for invalid input.
	assert.Equal(t, 0, gateway.callCount())
	assert.Len(t, store.ledger(), 0)

	after := store.snapshot()
	assert.Equal(t, 0, after.SoldTickets)
	for _, seat := range after.Seats {
		assert.False(t, seat.IsBooked)
	}
}

func TestReserve_DuplicateSeatIDsCollapse(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(3, 10)
	store := newFakeStore(event)
	engine, _, _ := newEngine(store, true)

	result, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
		EventID: event.ID,
		SeatIDs: []string{"S1", "S1", "S1"},
	})

	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.Len(t, result.Booking.Seats, 1)
	assert.Equal(t, 10.0, result.Booking.TotalAmount)
	assert.Equal(t, 1, store.snapshot().SoldTickets)
}

func TestReserve_PaymentDeclined(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(3, 10)
	store := newFakeStore(event)
	engine, _, _ := newEngine(store, false)

	before := store.snapshot()
	result, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
		EventID: event.ID,
		SeatIDs: []string{"S1"},
	})

	require.NoError(t, err)
	assert.False(t, result.Confirmed)
	assert.True(t, result.Retriable)
	assert.Equal(t, model.PaymentStatusFailed, result.Booking.PaymentStatus)

	// The decline is recorded for audit; inventory is untouched.
	ledger := store.ledger()
	require.Len(t, ledger, 1)
	assert.Equal(t, model.PaymentStatusFailed, ledger[0].PaymentStatus)

	after := store.snapshot()
	assert.Equal(t, before.SoldTickets, after.SoldTickets)
	assert.Equal(t, before.Seats, after.Seats)

	// The same seat can be taken by another user afterwards.
	engine2, _, _ := newEngine(store, true)
	retry, err := engine2.Reserve(ctx, uuid.New(), model.ReserveRequest{
		EventID: event.ID,
		SeatIDs: []string{"S1"},
	})
	require.NoError(t, err)
	assert.True(t, retry.Confirmed)
}

func TestReserve_GatewayErrorIsDecline(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(2, 10)
	store := newFakeStore(event)
	gateway := &stubGateway{err: errors.New("gateway timeout")}
	engine := service.NewReservationService(store, &fakeBookingRepo{}, newFakeUserRepo(), gateway, nil, nil)

	result, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
		EventID: event.ID,
		SeatIDs: []string{"S1"},
	})

	require.NoError(t, err)
	assert.False(t, result.Confirmed)
	assert.True(t, result.Retriable)
	assert.False(t, store.snapshot().SeatByID("S1").IsBooked)
}

func TestReserve_PriceSnapshotImmutable(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(3, 10)
	store := newFakeStore(event)
	engine, _, _ := newEngine(store, true)

	result, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
		EventID: event.ID,
		SeatIDs: []string{"S1", "S2"},
	})
	require.NoError(t, err)
	require.Equal(t, 20.0, result.Booking.TotalAmount)

	// A later price edit never retouches the recorded booking.
	store.setPrice(99)

	ledger := store.ledger()
	require.Len(t, ledger, 1)
	assert.Equal(t, 20.0, ledger[0].TotalAmount)
	assert.Equal(t, 10.0, ledger[0].Seats[0].Price)
}

func TestReserve_ConcurrentOverlap_OneWinner(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(3, 10)
	// S1 and S2 already sold; one seat left.
	for _, id := range []string{"S1", "S2"} {
		owner := uuid.New()
		seat := event.SeatByID(id)
		seat.IsBooked = true
		seat.BookedBy = &owner
	}
	event.SoldTickets = 2

	store := newFakeStore(event)
	engine, gateway, _ := newEngine(store, true)

	var wg sync.WaitGroup
	results := make([]*model.ReservationResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
				EventID: event.ID,
				SeatIDs: []string{"S3"},
			})
		}(i)
	}
	wg.Wait()

	confirmed := 0
	conflicts := 0
	for i := 0; i < 2; i++ {
		if errs[i] == nil {
			require.NotNil(t, results[i])
			assert.True(t, results[i].Confirmed)
			confirmed++
			continue
		}
		conflict, ok := apperrors.IsSeatConflict(errs[i])
		require.True(t, ok, "expected seat conflict, got %v", errs[i])
		assert.Contains(t, conflict.SeatIDs, "S3")
		conflicts++
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, conflicts)

	// The loser conflicted before its charge was attempted.
	assert.Equal(t, 1, gateway.callCount())
	assert.Equal(t, 3, store.snapshot().SoldTickets)
}

// 100 users competing for 10 seats: exactly 10 succeed and sold tickets
// always matches the number of booked seats.
func TestConcurrentReserve_NoDoubleBooking(t *testing.T) {
	ctx := context.Background()
	totalSeats := 10
	concurrentUsers := 100

	event := newTestEvent(totalSeats, 10)
	store := newFakeStore(event)
	engine, _, _ := newEngine(store, true)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	conflictCount := 0

	for i := 0; i < concurrentUsers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			seatID := fmt.Sprintf("S%d", i%totalSeats+1)
			result, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
				EventID: event.ID,
				SeatIDs: []string{seatID},
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil && result.Confirmed {
				successCount++
			} else if _, ok := apperrors.IsSeatConflict(err); ok {
				conflictCount++
			}
		}(i)
	}
	wg.Wait()

	t.Logf("%d users competing for %d seats - Success: %d, Conflicts: %d",
		concurrentUsers, totalSeats, successCount, conflictCount)

	assert.Equal(t, totalSeats, successCount)
	assert.Equal(t, concurrentUsers-totalSeats, conflictCount)

	after := store.snapshot()
	booked := 0
	for _, seat := range after.Seats {
		if seat.IsBooked {
			booked++
			assert.NotNil(t, seat.BookedBy)
		} else {
			assert.Nil(t, seat.BookedBy)
		}
	}
	assert.Equal(t, totalSeats, booked)
	assert.Equal(t, booked, after.SoldTickets)
	assert.LessOrEqual(t, after.SoldTickets, after.Capacity)
}

func TestReserve_CommitFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(2, 10)
	store := newFakeStore(event)
	store.commitErr = errors.New("connection reset")
	engine, _, _ := newEngine(store, true)

	_, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
		EventID: event.ID,
		SeatIDs: []string{"S1"},
	})

	require.Error(t, err)
	assert.False(t, store.snapshot().SeatByID("S1").IsBooked)
	assert.Len(t, store.ledger(), 0)
}

func TestReserve_PublishesConfirmation(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(2, 15)
	store := newFakeStore(event)
	notifications := queue.NewMemoryNotificationQueue(4)

	userRepo := newFakeUserRepo()
	userID := uuid.New()
	_, err := userRepo.Create(ctx, &model.User{ID: userID, Name: "Ada", Email: "ada@example.com", Role: model.RoleAttendee})
	require.NoError(t, err)

	engine := service.NewReservationService(store, &fakeBookingRepo{}, userRepo, &stubGateway{approve: true}, notifications, nil)

	result, err := engine.Reserve(ctx, userID, model.ReserveRequest{
		EventID: event.ID,
		SeatIDs: []string{"S1", "S2"},
	})
	require.NoError(t, err)
	require.True(t, result.Confirmed)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	msgs, err := notifications.SubscribeConfirmations(subCtx)
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, result.Booking.ID, msg.Data.BookingID)
		assert.Equal(t, "ada@example.com", msg.Data.UserEmail)
		assert.Equal(t, []string{"S1", "S2"}, msg.Data.SeatIDs)
		assert.Equal(t, 30.0, msg.Data.TotalAmount)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no confirmation published")
	}
}

func TestReserve_DeclineDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	event := newTestEvent(2, 15)
	store := newFakeStore(event)
	notifications := queue.NewMemoryNotificationQueue(4)
	engine := service.NewReservationService(store, &fakeBookingRepo{}, newFakeUserRepo(), &stubGateway{approve: false}, notifications, nil)

	result, err := engine.Reserve(ctx, uuid.New(), model.ReserveRequest{
		EventID: event.ID,
		SeatIDs: []string{"S1"},
	})
	require.NoError(t, err)
	require.False(t, result.Confirmed)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	msgs, err := notifications.SubscribeConfirmations(subCtx)
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		t.Fatalf("unexpected confirmation for declined booking %s", msg.Data.BookingID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMyBookings_FiltersByUser(t *testing.T) {
	ctx := context.Background()
	bookingRepo := &fakeBookingRepo{}
	userID := uuid.New()

	require.NoError(t, bookingRepo.Create(ctx, &model.Booking{ID: uuid.New(), UserID: userID, PaymentStatus: model.PaymentStatusCompleted}))
	require.NoError(t, bookingRepo.Create(ctx, &model.Booking{ID: uuid.New(), UserID: userID, PaymentStatus: model.PaymentStatusFailed}))
	require.NoError(t, bookingRepo.Create(ctx, &model.Booking{ID: uuid.New(), UserID: uuid.New(), PaymentStatus: model.PaymentStatusCompleted}))

	engine := service.NewReservationService(newFakeStore(newTestEvent(1, 1)), bookingRepo, newFakeUserRepo(), &stubGateway{approve: true}, nil, nil)

	bookings, err := engine.MyBookings(ctx, userID)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, userID, bookings[0].UserID)
	assert.Equal(t, model.PaymentStatusCompleted, bookings[0].PaymentStatus)
}
