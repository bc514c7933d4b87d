package holds

import (
	"time"

	"github.com/google/uuid"

	"gatepass/internal/shows"
)

// Hold statuses. ACTIVE is the only state with claims on inventory; every
// transition out of ACTIVE is a conditional update so exactly one caller
// wins between confirm, release and the sweeper.
const (
	StatusActive    = "ACTIVE"
	StatusConverted = "CONVERTED"
	StatusReleased  = "RELEASED"
	StatusExpired   = "EXPIRED"
)

// Hold is a short-lived claim on inventory for one anonymous checkout
// session. Seated holds own HELD units (show_units.hold_id back-references
// them); capacity holds own Quantity slots of the show's held_count.
type Hold struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ShowID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"show_id"`
	SessionID string         `gorm:"type:varchar(100);not null;index" json:"session_id"`
	Mode      shows.ShowMode `gorm:"type:varchar(10);not null" json:"mode"`
	Quantity  int            `gorm:"not null" json:"quantity"`
	Status    string         `gorm:"type:varchar(20);not null;default:'ACTIVE';index:idx_holds_sweep" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `gorm:"not null;index:idx_holds_sweep" json:"expires_at"`
}

// TableName sets the table name for Hold
func (Hold) TableName() string {
	return "holds"
}

func (h *Hold) IsActive() bool {
	return h.Status == StatusActive
}

// TTLRemaining returns how long until this hold lapses
func (h *Hold) TTLRemaining(now time.Time) time.Duration {
	if !h.IsActive() || !now.Before(h.ExpiresAt) {
		return 0
	}
	return h.ExpiresAt.Sub(now)
}
