package model

import "time"

// EventType identifies a domain event in the booking workflow. The values are
// the dotted strings written to the event stream and into a transaction's
// audit trail; the dispatcher switches exhaustively over this closed set.
type EventType string

const (
	EventBookingInitiated      EventType = "booking.initiated"
	EventValidationStarted     EventType = "validation.started"
	EventValidationCompleted   EventType = "validation.completed"
	EventValidationFailed      EventType = "validation.failed"
	EventPricingStarted        EventType = "pricing.started"
	EventPricingCompleted      EventType = "pricing.completed"
	EventQuotaCheckStarted     EventType = "quota.check_started"
	EventQuotaReserved         EventType = "quota.reserved"
	EventQuotaReservedOverCap  EventType = "quota.reserved_over_limit"
	EventQuotaExhausted        EventType = "quota.exhausted"
	EventBookingStarted        EventType = "booking.started"
	EventBookingCompleted      EventType = "booking.completed"
	EventBookingFailed         EventType = "booking.failed"
	EventCompensationStarted   EventType = "compensation.started"
	EventCompensationCompleted EventType = "compensation.completed"
)

// Event is one entry in a transaction's append-only audit trail. The trail
// never shrinks or reorders; every status transition appends exactly one
// event (the over-quota path appends two: the commit and the failed check).
type Event struct {
	Type      EventType      `json:"type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}
