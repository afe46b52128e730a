package spread

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is returned for window < 2 or a non-positive multiplier.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInsufficientData is returned when a leg is empty or the legs share no dates.
	ErrInsufficientData = errors.New("cannot compute: no data")
	// ErrInsufficientWindow is returned when fewer aligned rows exist than the window needs.
	ErrInsufficientWindow = errors.New("insufficient history for window")
)

// WindowError carries the row count behind ErrInsufficientWindow.
type WindowError struct {
	Rows   int
	Window int
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%s: %d aligned rows, window %d", ErrInsufficientWindow, e.Rows, e.Window)
}

func (e *WindowError) Unwrap() error { return ErrInsufficientWindow }
