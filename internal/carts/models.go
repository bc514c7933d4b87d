package carts

import (
	"time"

	"github.com/google/uuid"
)

// AbandonedCart tracks one checkout attempt per hold. Upserted when a
// pending booking is opened (last-seen contact and composition) and when
// the sweeper reclaims a hold that never reached checkout. Feeds the
// remarketing report and the recovery metric: a session that later
// completes a booking for the same show marks its abandoned rows recovered.
type AbandonedCart struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	HoldID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"hold_id"`
	SessionID string    `gorm:"type:varchar(100);not null;index:idx_carts_session_show" json:"session_id"`
	ShowID    uuid.UUID `gorm:"type:uuid;not null;index:idx_carts_session_show" json:"show_id"`

	CustomerName  string `gorm:"type:varchar(100)" json:"customer_name,omitempty"`
	CustomerEmail string `gorm:"type:varchar(255)" json:"customer_email,omitempty"`

	Mode       string   `gorm:"type:varchar(10);not null" json:"mode"`
	Quantity   int      `gorm:"not null" json:"quantity"`
	UnitLabels []string `gorm:"serializer:json" json:"unit_labels,omitempty"`
	Amount     float64  `gorm:"not null;default:0" json:"amount"`

	Recovered   bool       `gorm:"not null;default:false" json:"recovered"`
	RecoveredAt *time.Time `json:"recovered_at,omitempty"`

	AbandonedAt time.Time `gorm:"not null;index" json:"abandoned_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName sets the table name for AbandonedCart
func (AbandonedCart) TableName() string {
	return "abandoned_carts"
}
