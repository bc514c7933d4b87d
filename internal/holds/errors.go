package holds

import (
	"errors"
	"fmt"
)

// Sentinel errors for the hold manager. Controllers map these to HTTP
// statuses; services wrap them with fmt.Errorf("%w") so errors.Is works
// through the stack.
var (
	ErrHoldNotFound     = errors.New("hold not found")
	ErrHoldExpired      = errors.New("hold has expired")
	ErrHoldNotRenewable = errors.New("hold has reached its maximum lifetime")
	ErrCapacityExceeded = errors.New("not enough capacity remaining")
	ErrUnitsUnavailable = errors.New("units not available")
)

// UnavailableUnitsError reports which units lost the race so the caller can
// show them on the seat map. Unwraps to ErrUnitsUnavailable.
type UnavailableUnitsError struct {
	Labels []string
}

func (e *UnavailableUnitsError) Error() string {
	return fmt.Sprintf("units not available: %v", e.Labels)
}

func (e *UnavailableUnitsError) Unwrap() error {
	return ErrUnitsUnavailable
}
