package holds

import "time"

// HeldUnitInfo is one seat claimed by a hold
type HeldUnitInfo struct {
	UnitID   string  `json:"unit_id"`
	Label    string  `json:"label"`
	Row      string  `json:"row"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// HoldResponse is the public view of a hold
type HoldResponse struct {
	HoldID     string         `json:"hold_id"`
	ShowID     string         `json:"show_id"`
	SessionID  string         `json:"session_id"`
	Mode       string         `json:"mode"`
	Status     string         `json:"status"`
	Quantity   int            `json:"quantity"`
	Units      []HeldUnitInfo `json:"units,omitempty"`
	TotalPrice float64        `json:"total_price"`
	ExpiresAt  time.Time      `json:"expires_at"`
	TTL        int            `json:"ttl_seconds"`
}
