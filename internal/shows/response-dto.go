package shows

// UnitAvailabilityInfo is one seat on the public seat map
type UnitAvailabilityInfo struct {
	UnitID   string  `json:"unit_id"`
	Label    string  `json:"label"`
	Row      string  `json:"row"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Status   string  `json:"status"`
}

// AvailabilityResponse is the merged availability view for a show.
// Seated shows list Units; capacity shows report Capacity/Remaining.
type AvailabilityResponse struct {
	ShowID    string                 `json:"show_id"`
	EventName string                 `json:"event_name"`
	Mode      string                 `json:"mode"`
	Capacity  int                    `json:"capacity,omitempty"`
	Remaining int                    `json:"remaining"`
	Units     []UnitAvailabilityInfo `json:"units,omitempty"`
}
