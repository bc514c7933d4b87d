package holds

// AcquireHoldRequest claims inventory for a checkout session. Seated shows
// send UnitIDs; capacity shows send Quantity.
type AcquireHoldRequest struct {
	SessionID string   `json:"session_id" validate:"required,min=8,max=100"`
	UnitIDs   []string `json:"unit_ids" validate:"omitempty,min=1,max=10,dive,uuid"`
	Quantity  int      `json:"quantity" validate:"omitempty,min=1,max=10"`
}

// RenewHoldRequest extends an active hold for the owning session
type RenewHoldRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// ReleaseHoldRequest releases a hold early for the owning session
type ReleaseHoldRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}
