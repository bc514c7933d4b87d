package tickets

import "time"

// IssuedTicket is one sealed admission code handed to the customer
type IssuedTicket struct {
	TicketID string `json:"ticket_id"`
	Label    string `json:"label"`
	Code     string `json:"code"`
}

// ScanResult is the gate's verdict for one scanned code. Admitted and
// already-used verdicts carry the show identity so the scanner can show
// the attendant what the ticket is for.
type ScanResult struct {
	Result      string     `json:"result"`
	TicketID    string     `json:"ticket_id,omitempty"`
	Label       string     `json:"label,omitempty"`
	ShowID      string     `json:"show_id,omitempty"`
	EventName   string     `json:"event_name,omitempty"`
	ShowDate    string     `json:"show_date,omitempty"`
	ShowTime    string     `json:"show_time,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	FirstUsedAt *time.Time `json:"first_used_at,omitempty"`
}
