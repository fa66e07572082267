// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking saga completes. It
// carries enough information for downstream consumers to log, notify, or
// feed analytics without reading the transaction record, which expires.
type BookingConfirmedEvent struct {
	RequestID       string   `json:"request_id"`
	ReferenceID     string   `json:"reference_id"`
	UserName        string   `json:"user_name"`
	Services        []string `json:"services"`
	BasePrice       float64  `json:"base_price"`
	FinalPrice      float64  `json:"final_price"`
	DiscountApplied bool     `json:"discount_applied"`
	DiscountReason  string   `json:"discount_reason,omitempty"`
	ConfirmedAt     string   `json:"confirmed_at"`
}
