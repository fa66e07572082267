package model

// BookingResult is the client-facing outcome of a transaction, derived purely
// from the stored record. Success is true only for completed bookings; a
// compensated transaction reports its error message instead.
type BookingResult struct {
	RequestID          string           `json:"request_id"`
	Success            bool             `json:"success"`
	ReferenceID        string           `json:"reference_id,omitempty"`
	BasePrice          float64          `json:"base_price"`
	DiscountApplied    bool             `json:"discount_applied"`
	DiscountPercentage float64          `json:"discount_percentage,omitempty"`
	DiscountReason     string           `json:"discount_reason,omitempty"`
	FinalPrice         float64          `json:"final_price"`
	ErrorMessage       string           `json:"error_message,omitempty"`
	Services           []MedicalService `json:"services"`
}

// BuildResult projects a transaction state onto its client-facing result.
func BuildResult(state *TransactionState) BookingResult {
	res := BookingResult{
		RequestID:       state.RequestID,
		Success:         state.Status == StatusCompleted,
		ReferenceID:     state.ReferenceID,
		BasePrice:       state.BasePrice,
		DiscountApplied: state.DiscountApplied,
		DiscountReason:  state.DiscountReason,
		FinalPrice:      state.FinalPrice,
		ErrorMessage:    state.ErrorMessage,
		Services:        state.Services,
	}
	if state.DiscountApplied {
		res.DiscountPercentage = state.DiscountPercentage
	}
	return res
}
