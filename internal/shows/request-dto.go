package shows

// CreateShowRequest creates one show occurrence
type CreateShowRequest struct {
	EventName string  `json:"event_name" validate:"required,min=2,max=200"`
	ShowDate  string  `json:"show_date" validate:"required"` // YYYY-MM-DD
	ShowTime  string  `json:"show_time" validate:"required,len=5"`
	Language  string  `json:"language" validate:"omitempty,max=30"`
	Mode      string  `json:"mode" validate:"required,oneof=SEATED CAPACITY"`
	BasePrice float64 `json:"base_price" validate:"required,gt=0"`
}

// LayoutSection describes one block of seats in a seated layout
type LayoutSection struct {
	Category        string   `json:"category" validate:"required,max=30"`
	Rows            []string `json:"rows" validate:"required,min=1,dive,required"`
	SeatsPerRow     int      `json:"seats_per_row" validate:"required,min=1,max=100"`
	PriceMultiplier float64  `json:"price_multiplier" validate:"omitempty,gt=0"`
}

// PublishLayoutRequest publishes inventory for a show. Seated shows send
// Sections; capacity shows send Capacity.
type PublishLayoutRequest struct {
	Sections []LayoutSection `json:"sections" validate:"omitempty,dive"`
	Capacity int             `json:"capacity" validate:"omitempty,min=1"`
}

// BlockUnitRequest flips a unit in or out of the BLOCKED state
type BlockUnitRequest struct {
	Blocked bool `json:"blocked"`
}
