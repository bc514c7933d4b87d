package bookings

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrHoldNotActive   = errors.New("hold is not active")

	// ErrAmountMismatch rejects a webhook whose captured amount differs
	// from the booking amount.
	ErrAmountMismatch = errors.New("payment amount does not match booking amount")

	// ErrPaymentMismatch rejects a second webhook carrying a different
	// payment ID for an already confirmed booking.
	ErrPaymentMismatch = errors.New("booking already confirmed with a different payment")

	// ErrReservationLapsed means payment arrived after the hold expired.
	// The money is captured but the inventory is gone; the caller must
	// refund.
	ErrReservationLapsed = errors.New("reservation lapsed before payment completed")

	// ErrInvalidTransition guards the state machine against illegal moves
	ErrInvalidTransition = errors.New("invalid booking state transition")
)
