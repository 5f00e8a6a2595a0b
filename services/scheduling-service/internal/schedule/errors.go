package schedule

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced by the scheduling core. Every operation is a
// pure request/response: a failed call leaves the store unchanged, and the
// core never logs or retries on its own.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("reservation not found")
	ErrConflict               = errors.New("time slot already booked")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrCancellationWindow     = errors.New("cancellation window closed")
)

// ConflictError carries a reference to the blocking reservation so callers
// can surface the occupied slot. It unwraps to ErrConflict.
type ConflictError struct {
	Blocking *Reservation
}

func (e *ConflictError) Error() string {
	if e.Blocking == nil {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s: %s on %s", ErrConflict, e.Blocking.Slot, e.Blocking.Date)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// BlockingReservation extracts the occupant from a conflict error, if the
// store recorded one.
func BlockingReservation(err error) *Reservation {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Blocking
	}
	return nil
}
