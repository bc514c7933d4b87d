package notifications

import "time"

// Lifecycle event types published to the booking-lifecycle topic
const (
	EventHoldAcquired     = "HOLD_ACQUIRED"
	EventHoldRenewed      = "HOLD_RENEWED"
	EventHoldReleased     = "HOLD_RELEASED"
	EventHoldExpired      = "HOLD_EXPIRED"
	EventBookingPending   = "BOOKING_PENDING"
	EventBookingConfirmed = "BOOKING_CONFIRMED"
	EventBookingCancelled = "BOOKING_CANCELLED"
	EventBookingExpired   = "BOOKING_EXPIRED"
	EventTicketScanned    = "TICKET_SCANNED"
)

// LifecycleEvent is one state transition in the reservation flow. Events
// are keyed by SessionID so one session's events land on one partition in
// order.
type LifecycleEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	ShowID    string    `json:"show_id"`
	HoldID    string    `json:"hold_id,omitempty"`
	BookingID string    `json:"booking_id,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AbandonedCartEvent is published when a hold lapses without converting,
// feeding the remarketing pipeline.
type AbandonedCartEvent struct {
	SessionID   string    `json:"session_id"`
	ShowID      string    `json:"show_id"`
	HoldID      string    `json:"hold_id"`
	Mode        string    `json:"mode"`
	Quantity    int       `json:"quantity"`
	UnitLabels  []string  `json:"unit_labels,omitempty"`
	AbandonedAt time.Time `json:"abandoned_at"`
}
