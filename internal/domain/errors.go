package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state change is not legal
	// from the record's current state. State is left unchanged.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrCodeMismatch is deliberately generic: verification failures give
	// no hint about what was wrong.
	ErrCodeMismatch = errors.New("verification failed")

	ErrNotInProgress      = errors.New("ticket is not in progress")
	ErrVerificationLocked = errors.New("too many verification attempts")
	ErrCodeAlreadyIssued  = errors.New("completion code already issued")
	ErrNotFound           = errors.New("not found")
)

// StockError reports which SKU could not be reserved so the caller can
// show an actionable out-of-stock message.
type StockError struct {
	SKU string
	Qty int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (need %d)", e.SKU, e.Qty)
}

// IsInsufficientStock reports whether err is a reservation shortfall.
func IsInsufficientStock(err error) bool {
	var se *StockError
	return errors.As(err, &se)
}
