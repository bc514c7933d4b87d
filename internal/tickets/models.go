package tickets

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Verification errors. ErrTicketInvalid is deliberately opaque: a forged,
// corrupted or truncated code all look the same to the gate.
var (
	ErrTicketInvalid       = errors.New("ticket is not valid")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrBookingNotConfirmed = errors.New("booking is not confirmed")
	ErrTicketTooOld        = errors.New("ticket exceeds maximum scan age")
)

// Scan outcomes returned to the gate client
const (
	ScanAdmitted    = "ADMITTED"
	ScanAlreadyUsed = "ALREADY_USED"
	ScanRejected    = "REJECTED"
)

// Ticket is one admission credential minted at booking confirmation.
// Seated bookings mint one ticket per unit; capacity bookings mint one per
// slot. The used flag flips exactly once under a conditional update.
type Ticket struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID uuid.UUID  `gorm:"type:uuid;not null;index" json:"booking_id"`
	ShowID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"show_id"`
	UnitID    *uuid.UUID `gorm:"type:uuid" json:"unit_id,omitempty"`
	Label     string     `gorm:"type:varchar(20);not null" json:"label"`

	Used   bool       `gorm:"not null;default:false" json:"used"`
	UsedAt *time.Time `json:"used_at,omitempty"`

	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Ticket
func (Ticket) TableName() string {
	return "tickets"
}
