package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEventUnavailable     = errors.New("event not found or inactive")
	ErrInvalidSeatSelection = errors.New("invalid seat selection")
	ErrPaymentDeclined      = errors.New("payment declined")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternalServerError  = errors.New("internal server error")
)

// SeatConflictError reports which seats of a reservation attempt are already
// taken. It names the conflicting seats so callers can resubmit a corrected
// selection.
type SeatConflictError struct {
	SeatIDs []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats already taken: %s", strings.Join(e.SeatIDs, ", "))
}

// IsSeatConflict reports whether err is a SeatConflictError and returns it.
func IsSeatConflict(err error) (*SeatConflictError, bool) {
	var sc *SeatConflictError
	if errors.As(err, &sc) {
		return sc, true
	}
	return nil, false
}
