package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the booking payment state.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo enforces the one-way pending -> completed|failed life
// cycle. A settled booking is never re-attempted in place.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	transitions := map[PaymentStatus][]PaymentStatus{
		PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
		PaymentStatusCompleted: {},
		PaymentStatusFailed:    {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// BookedSeat captures a seat id with the price it sold at. Prices are
// snapshotted at booking time and never recomputed.
type BookedSeat struct {
	SeatID string  `json:"seat_id" db:"seat_id"`
	Price  float64 `json:"price" db:"price"`
}

// Booking is one recorded reservation attempt. Attempts that reach the
// payment step are persisted whatever the outcome, so the ledger doubles
// as an audit trail of declines.
type Booking struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	EventID       uuid.UUID     `json:"event_id" db:"event_id"`
	Seats         []BookedSeat  `json:"seats" db:"-"`
	TotalAmount   float64       `json:"total_amount" db:"total_amount"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentRef    string        `json:"payment_simulation_id" db:"payment_ref"`
	EmailSent     bool          `json:"email_sent" db:"email_sent"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

type ReserveRequest struct {
	EventID uuid.UUID `json:"event_id" binding:"required"`
	SeatIDs []string  `json:"seat_ids" binding:"required,min=1"`
}

// ReservationResult is the outcome surface of the engine. Retriable is set
// on declines: the same seats may be attempted again.
type ReservationResult struct {
	Confirmed    bool          `json:"confirmed"`
	Booking      *Booking      `json:"booking"`
	EventDetails *EventSummary `json:"event_details,omitempty"`
	Retriable    bool          `json:"retriable,omitempty"`
}
