package repository

import (
	"context"

	"seat-reserve-pro/internal/model"
	apperrors "seat-reserve-pro/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository is the append-only booking ledger. Rows are inserted
// once per reservation attempt and never rewritten, except for the
// email_sent flag set by the confirmation worker.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
}

type BookingRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &BookingRepositoryImpl{
		pool: pool,
	}
}

func (r *BookingRepositoryImpl) Create(ctx context.Context, booking *model.Booking) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertBookingTx(ctx, tx, booking); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// insertBookingTx writes the booking row plus its seat/price snapshot. It
// is shared with the reservation store, which runs it inside the same
// transaction that flips the seats.
func insertBookingTx(ctx context.Context, tx pgx.Tx, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (id, user_id, event_id, total_amount, payment_status, payment_ref, email_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query,
		booking.ID, booking.UserID, booking.EventID,
		booking.TotalAmount, booking.PaymentStatus, booking.PaymentRef, booking.EmailSent,
	).Scan(&booking.CreatedAt)
	if err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(booking.Seats))
	for i, seat := range booking.Seats {
		rows = append(rows, []interface{}{booking.ID, seat.SeatID, seat.Price, i + 1})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"booking_seats"},
		[]string{"booking_id", "seat_id", "price", "pos"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `
		SELECT id, user_id, event_id, total_amount, payment_status, payment_ref, email_sent, created_at
		FROM bookings
		WHERE id = $1
	`

	var booking model.Booking
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.EventID,
		&booking.TotalAmount,
		&booking.PaymentStatus,
		&booking.PaymentRef,
		&booking.EmailSent,
		&booking.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}

	booking.Seats, err = r.loadSeats(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *BookingRepositoryImpl) ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	query := `
		SELECT id, user_id, event_id, total_amount, payment_status, payment_ref, email_sent, created_at
		FROM bookings
		WHERE user_id = $1 AND payment_status = $2
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID, model.PaymentStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		var booking model.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.EventID,
			&booking.TotalAmount,
			&booking.PaymentStatus,
			&booking.PaymentRef,
			&booking.EmailSent,
			&booking.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, &booking)
	}

	for _, booking := range bookings {
		booking.Seats, err = r.loadSeats(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (r *BookingRepositoryImpl) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE bookings
		SET email_sent = TRUE
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepositoryImpl) loadSeats(ctx context.Context, bookingID uuid.UUID) ([]model.BookedSeat, error) {
	query := `
		SELECT seat_id, price
		FROM booking_seats
		WHERE booking_id = $1
		ORDER BY pos ASC
	`
	rows, err := r.pool.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]model.BookedSeat, 0)
	for rows.Next() {
		var seat model.BookedSeat
		if err := rows.Scan(&seat.SeatID, &seat.Price); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, nil
}
