package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Seat is a unit of inventory owned by exactly one event. BookedBy is set
// iff IsBooked is true.
type Seat struct {
	SeatID   string     `json:"seat_id" db:"seat_id"`
	IsBooked bool       `json:"is_booked" db:"is_booked"`
	BookedBy *uuid.UUID `json:"booked_by,omitempty" db:"booked_by"`
}

type Event struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	StartsAt    time.Time `json:"starts_at" db:"starts_at"`
	Venue       string    `json:"venue" db:"venue"`
	Capacity    int       `json:"capacity" db:"capacity"`
	Price       float64   `json:"price" db:"price"`
	Description string    `json:"description" db:"description"`
	SoldTickets int       `json:"sold_tickets" db:"sold_tickets"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// Seats has length Capacity, generated once at creation and never resized.
	Seats []Seat `json:"seats,omitempty" db:"-"`
}

// GenerateSeats builds the seat list S1..S<capacity> for a new event.
func GenerateSeats(capacity int) []Seat {
	seats := make([]Seat, 0, capacity)
	for i := 1; i <= capacity; i++ {
		seats = append(seats, Seat{SeatID: fmt.Sprintf("S%d", i)})
	}
	return seats
}

// SeatByID returns a pointer into Seats, or nil when the id is unknown.
func (e *Event) SeatByID(seatID string) *Seat {
	for i := range e.Seats {
		if e.Seats[i].SeatID == seatID {
			return &e.Seats[i]
		}
	}
	return nil
}

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	Venue       string    `json:"venue" binding:"required"`
	Capacity    int       `json:"capacity" binding:"required,min=1"`
	Price       *float64  `json:"price" binding:"required,min=0"`
	Description string    `json:"description" binding:"required"`
}

// UpdateEventParams covers the admin-editable, non-seat fields. Price edits
// never retouch bookings already recorded.
type UpdateEventParams struct {
	Title       *string    `json:"title"`
	StartsAt    *time.Time `json:"starts_at"`
	Venue       *string    `json:"venue"`
	Price       *float64   `json:"price"`
	Description *string    `json:"description"`
}

// EventSummary is the list-view projection without the seat map.
type EventSummary struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"starts_at"`
	Venue       string    `json:"venue"`
	Capacity    int       `json:"capacity"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	SoldTickets int       `json:"sold_tickets"`
}

func (e *Event) Summary() EventSummary {
	return EventSummary{
		ID:          e.ID,
		Title:       e.Title,
		StartsAt:    e.StartsAt,
		Venue:       e.Venue,
		Capacity:    e.Capacity,
		Price:       e.Price,
		Description: e.Description,
		SoldTickets: e.SoldTickets,
	}
}
