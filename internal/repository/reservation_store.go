package repository

import (
	"context"
	"time"

	"seat-reserve-pro/internal/model"
	apperrors "seat-reserve-pro/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReservationStore is the narrow storage surface the reservation engine
// runs against. The engine serializes per event above this interface; the
// Postgres implementation re-checks availability with a conditional UPDATE
// so a lost update cannot slip through even if that serialization is ever
// bypassed. Tests substitute an in-memory fake.
type ReservationStore interface {
	// LoadEventForUpdate returns the event with its full seat snapshot.
	// Inactive or missing events yield ErrEventUnavailable.
	LoadEventForUpdate(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	// CommitReservation atomically marks the booking's seats as taken,
	// bumps sold_tickets and appends the completed booking to the ledger.
	// Returns *apperrors.SeatConflictError when any seat already flipped.
	CommitReservation(ctx context.Context, booking *model.Booking) error
	// RecordDeclined appends a failed booking without touching inventory.
	RecordDeclined(ctx context.Context, booking *model.Booking) error
}

type ReservationStoreImpl struct {
	pool *pgxpool.Pool
}

func NewReservationStore(pool *pgxpool.Pool) ReservationStore {
	return &ReservationStoreImpl{
		pool: pool,
	}
}

func (s *ReservationStoreImpl) LoadEventForUpdate(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	query := `
		SELECT id, title, starts_at, venue, capacity, price, description, sold_tickets, is_active, created_at, updated_at
		FROM events
		WHERE id = $1 AND is_active = TRUE
	`

	var event model.Event
	err := s.pool.QueryRow(ctx, query, eventID).Scan(
		&event.ID,
		&event.Title,
		&event.StartsAt,
		&event.Venue,
		&event.Capacity,
		&event.Price,
		&event.Description,
		&event.SoldTickets,
		&event.IsActive,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventUnavailable
		}
		return nil, err
	}

	event.Seats, err = loadSeats(ctx, s.pool, eventID)
	if err != nil {
		return nil, err
	}

	return &event, nil
}

func (s *ReservationStoreImpl) CommitReservation(ctx context.Context, booking *model.Booking) error {
	seatIDs := make([]string, 0, len(booking.Seats))
	for _, seat := range booking.Seats {
		seatIDs = append(seatIDs, seat.SeatID)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Flip only seats that are still free; a shortfall means a concurrent
	// winner took one of them.
	flip := `
		UPDATE seats
		SET is_booked = TRUE, booked_by = $1
		WHERE event_id = $2 AND seat_id = ANY($3) AND is_booked = FALSE
	`
	tag, err := tx.Exec(ctx, flip, booking.UserID, booking.EventID, seatIDs)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(seatIDs) {
		// Roll back our partial flips before reading, so only the
		// concurrent winner's seats show as booked.
		_ = tx.Rollback(ctx)
		taken, lookupErr := s.takenSeats(ctx, booking.EventID, seatIDs)
		if lookupErr != nil {
			return lookupErr
		}
		return &apperrors.SeatConflictError{SeatIDs: taken}
	}

	// Writing the events row also serializes this commit against a
	// concurrent deactivation: whichever UPDATE wins the row lock decides,
	// and a commit racing a completed deactivation aborts here.
	bump := `
		UPDATE events
		SET sold_tickets = sold_tickets + $1, updated_at = $2
		WHERE id = $3 AND is_active = TRUE
	`
	tag, err = tx.Exec(ctx, bump, len(seatIDs), time.Now().UTC(), booking.EventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventUnavailable
	}

	if err := insertBookingTx(ctx, tx, booking); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *ReservationStoreImpl) RecordDeclined(ctx context.Context, booking *model.Booking) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertBookingTx(ctx, tx, booking); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *ReservationStoreImpl) takenSeats(ctx context.Context, eventID uuid.UUID, seatIDs []string) ([]string, error) {
	query := `
		SELECT seat_id
		FROM seats
		WHERE event_id = $1 AND seat_id = ANY($2) AND is_booked = TRUE
		ORDER BY pos ASC
	`
	rows, err := s.pool.Query(ctx, query, eventID, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	taken := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		taken = append(taken, id)
	}
	return taken, nil
}
