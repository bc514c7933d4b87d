package tickets

// ScanRequest carries one scanned ticket code from the gate client
type ScanRequest struct {
	Code string `json:"code" validate:"required"`
}
