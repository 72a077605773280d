package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seat-reserve-pro/internal/model"
	apperrors "seat-reserve-pro/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.EventSummary, error)
	// FindByID returns the event header without its seat map.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	// LoadSeats returns the event's seats in seat order.
	LoadSeats(ctx context.Context, id uuid.UUID) ([]model.Seat, error)
	Update(ctx context.Context, id uuid.UUID, params model.UpdateEventParams) (*model.Event, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

// Create inserts the event together with its generated seat rows in one
// transaction, so a partially seated event can never be observed.
func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO events (id, title, starts_at, venue, capacity, price, description, sold_tickets, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, TRUE)
		RETURNING id, title, starts_at, venue, capacity, price, description, sold_tickets, is_active, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		event.ID, event.Title, event.StartsAt, event.Venue,
		event.Capacity, event.Price, event.Description,
	).Scan(
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
		return nil, err
	}

	event.Seats = model.GenerateSeats(event.Capacity)
	rows := make([][]interface{}, 0, len(event.Seats))
	for i, seat := range event.Seats {
		rows = append(rows, []interface{}{event.ID, seat.SeatID, i + 1, false, nil})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"seats"},
		[]string{"event_id", "seat_id", "pos", "is_booked", "booked_by"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.EventSummary, error) {
	query := `
		SELECT id, title, starts_at, venue, capacity, price, description, sold_tickets
		FROM events
		WHERE is_active = TRUE
		ORDER BY starts_at ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.EventSummary, 0)
	for rows.Next() {
		var event model.EventSummary
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.StartsAt,
			&event.Venue,
			&event.Capacity,
			&event.Price,
			&event.Description,
			&event.SoldTickets,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `
		SELECT id, title, starts_at, venue, capacity, price, description, sold_tickets, is_active, created_at, updated_at
		FROM events
		WHERE id = $1
	`

	var event model.Event
	err := r.pool.QueryRow(ctx, query, id).Scan(
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

	return &event, nil
}

func (r *EventRepositoryImpl) LoadSeats(ctx context.Context, id uuid.UUID) ([]model.Seat, error) {
	return loadSeats(ctx, r.pool, id)
}

func (r *EventRepositoryImpl) Update(ctx context.Context, id uuid.UUID, params model.UpdateEventParams) (*model.Event, error) {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	if params.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", argPos))
		args = append(args, *params.Title)
		argPos++
	}
	if params.StartsAt != nil {
		sets = append(sets, fmt.Sprintf("starts_at = $%d", argPos))
		args = append(args, *params.StartsAt)
		argPos++
	}
	if params.Venue != nil {
		sets = append(sets, fmt.Sprintf("venue = $%d", argPos))
		args = append(args, *params.Venue)
		argPos++
	}
	if params.Price != nil {
		sets = append(sets, fmt.Sprintf("price = $%d", argPos))
		args = append(args, *params.Price)
		argPos++
	}
	if params.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argPos))
		args = append(args, *params.Description)
		argPos++
	}

	if len(sets) == 0 {
		return nil, apperrors.ErrInvalidInput
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE events
		SET %s
		WHERE id = $%d
		RETURNING id, title, starts_at, venue, capacity, price, description, sold_tickets, is_active, created_at, updated_at
	`, strings.Join(sets, ", "), argPos)

	var event model.Event
	err := r.pool.QueryRow(ctx, query, args...).Scan(
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

	return &event, nil
}

// Deactivate soft-deletes: bookings keep referencing the event.
func (r *EventRepositoryImpl) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE events
		SET is_active = FALSE, updated_at = $2
		WHERE id = $1 AND is_active = TRUE
	`
	tag, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventUnavailable
	}
	return nil
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func loadSeats(ctx context.Context, q pgxQuerier, eventID uuid.UUID) ([]model.Seat, error) {
	query := `
		SELECT seat_id, is_booked, booked_by
		FROM seats
		WHERE event_id = $1
		ORDER BY pos ASC
	`
	rows, err := q.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]model.Seat, 0)
	for rows.Next() {
		var seat model.Seat
		if err := rows.Scan(&seat.SeatID, &seat.IsBooked, &seat.BookedBy); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, nil
}
