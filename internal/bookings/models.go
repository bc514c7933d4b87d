package bookings

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/shows"
)

// Booking statuses. PENDING bookings wait for a payment webhook; every
// terminal transition is a conditional update on the current status.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusExpired   = "EXPIRED"
)

// Booking ties a hold to a payment order. It is created PENDING when the
// customer starts checkout and confirmed by the payment webhook, which is
// also the moment the hold converts and tickets are minted.
type Booking struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Reference string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"reference"`

	HoldID    uuid.UUID `gorm:"type:uuid;not null;index" json:"hold_id"`
	ShowID    uuid.UUID `gorm:"type:uuid;not null;index" json:"show_id"`
	SessionID string    `gorm:"type:varchar(100);not null;index" json:"session_id"`

	CustomerName  string `gorm:"type:varchar(100)" json:"customer_name"`
	CustomerEmail string `gorm:"type:varchar(255)" json:"customer_email"`
	CustomerPhone string `gorm:"type:varchar(20)" json:"customer_phone"`

	Mode     shows.ShowMode `gorm:"type:varchar(10);not null" json:"mode"`
	Quantity int            `gorm:"not null" json:"quantity"`
	Amount   float64        `gorm:"not null" json:"amount"`
	Currency string         `gorm:"type:varchar(3);not null;default:'INR'" json:"currency"`

	PaymentOrderID string  `gorm:"type:varchar(64);not null;uniqueIndex" json:"payment_order_id"`
	PaymentID      *string `gorm:"type:varchar(64)" json:"payment_id,omitempty"`

	Status      string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	// Mirrors the hold deadline while PENDING so status polls can render
	// the countdown without a join; the hold row stays authoritative.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"

// GenerateReference mints a human-readable booking reference:
// GPS-<yyyymmdd>-<6 letters>. The alphabet drops I and O to keep phone
// support sane; uniqueness is enforced by the database index.
func GenerateReference(now time.Time) (string, error) {
	raw := make([]byte, 6)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate booking reference: %w", err)
	}

	letters := make([]byte, 6)
	for i, b := range raw {
		letters[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}

	return fmt.Sprintf("GPS-%s-%s", now.Format("20060102"), letters), nil
}
