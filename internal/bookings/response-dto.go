package bookings

import (
	"time"

	"gatepass/internal/tickets"
)

// BookedUnitInfo is one seat in a booking
type BookedUnitInfo struct {
	UnitID   string  `json:"unit_id"`
	Label    string  `json:"label"`
	Row      string  `json:"row"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// BookingResponse is the public view of a booking. Tickets are only
// present once the booking is confirmed.
type BookingResponse struct {
	BookingID      string                 `json:"booking_id"`
	Reference      string                 `json:"reference"`
	ShowID         string                 `json:"show_id"`
	HoldID         string                 `json:"hold_id"`
	SessionID      string                 `json:"session_id"`
	Mode           string                 `json:"mode"`
	Status         string                 `json:"status"`
	Quantity       int                    `json:"quantity"`
	Units          []BookedUnitInfo       `json:"units,omitempty"`
	Amount         float64                `json:"amount"`
	Currency       string                 `json:"currency"`
	PaymentOrderID string                 `json:"payment_order_id"`
	Tickets        []tickets.IssuedTicket `json:"tickets,omitempty"`
	HoldExpiresAt  *time.Time             `json:"hold_expires_at,omitempty"`
	ConfirmedAt    *time.Time             `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}
