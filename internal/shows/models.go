package shows

import (
	"time"

	"github.com/google/uuid"
)

// ShowMode selects how inventory is tracked for a show
type ShowMode string

const (
	// ModeSeated shows sell named seats (one ShowUnit per seat)
	ModeSeated ShowMode = "SEATED"
	// ModeCapacity shows sell anonymous slots against a counter
	ModeCapacity ShowMode = "CAPACITY"
)

// Unit statuses. Only the hold manager and the booking state machine may
// move a unit between these.
const (
	UnitAvailable = "AVAILABLE"
	UnitHeld      = "HELD"
	UnitBooked    = "BOOKED"
	UnitBlocked   = "BLOCKED"
)

// Show is one event occurrence: event + date + time + language variant.
// Capacity-mode shows carry their counters inline so a single row lock
// covers the whole contended state.
type Show struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventName string    `gorm:"not null;index" json:"event_name"`
	ShowDate  time.Time `gorm:"type:date;not null;uniqueIndex:idx_show_slot" json:"show_date"`
	ShowTime  string    `gorm:"type:varchar(5);not null;uniqueIndex:idx_show_slot" json:"show_time"`
	Language  string    `gorm:"type:varchar(30);uniqueIndex:idx_show_slot" json:"language"`
	Mode      ShowMode  `gorm:"type:varchar(10);not null" json:"mode"`
	BasePrice float64   `gorm:"not null" json:"base_price"`

	// Capacity-mode counters; zero and unused for seated shows
	Capacity    int `gorm:"not null;default:0" json:"capacity"`
	HeldCount   int `gorm:"not null;default:0" json:"held_count"`
	BookedCount int `gorm:"not null;default:0" json:"booked_count"`

	Published bool      `gorm:"not null;default:false" json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Units []ShowUnit `json:"units,omitempty" gorm:"foreignKey:ShowID;constraint:OnDelete:CASCADE;"`
}

// ShowUnit is one bookable seat for a seated show
type ShowUnit struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ShowID   uuid.UUID  `gorm:"type:uuid;index;not null;uniqueIndex:idx_show_unit" json:"show_id"`
	Label    string     `gorm:"not null;uniqueIndex:idx_show_unit" json:"label"`
	Row      string     `gorm:"not null" json:"row"`
	Category string     `gorm:"type:varchar(30);not null" json:"category"`
	Price    float64    `gorm:"not null" json:"price"`
	Status   string     `gorm:"type:varchar(20);check:status IN ('AVAILABLE', 'HELD', 'BOOKED', 'BLOCKED');default:'AVAILABLE'" json:"status"`
	HoldID   *uuid.UUID `gorm:"type:uuid;index" json:"hold_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Show
func (Show) TableName() string {
	return "shows"
}

// TableName sets the table name for ShowUnit
func (ShowUnit) TableName() string {
	return "show_units"
}

// Remaining returns how many capacity-mode slots are still sellable
func (s *Show) Remaining() int {
	return s.Capacity - s.HeldCount - s.BookedCount
}

func (u *ShowUnit) IsAvailable() bool {
	return u.Status == UnitAvailable
}

func (u *ShowUnit) IsBlocked() bool {
	return u.Status == UnitBlocked
}
