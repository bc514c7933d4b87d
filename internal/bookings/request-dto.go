package bookings

// CreateBookingRequest opens a pending booking against an active hold
type CreateBookingRequest struct {
	SessionID     string `json:"session_id" validate:"required,min=8,max=100"`
	HoldID        string `json:"hold_id" validate:"required,uuid"`
	CustomerName  string `json:"customer_name" validate:"omitempty,max=100"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=20"`
}

// CancelBookingRequest cancels a booking for the owning session
type CancelBookingRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}
