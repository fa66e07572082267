package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the transaction's position in the saga state machine:
//
//	initiated → validating → validation_completed → pricing → pricing_completed
//	  → checking_quota → {quota_reserved | quota_exhausted} → booking → completed
//
// failed is reachable from any step and is always followed by compensating →
// compensated. completed and compensated are the only terminal statuses;
// quota_exhausted always continues through compensation.
type Status string

const (
	StatusInitiated           Status = "initiated"
	StatusValidating          Status = "validating"
	StatusValidationCompleted Status = "validation_completed"
	StatusPricing             Status = "pricing"
	StatusPricingCompleted    Status = "pricing_completed"
	StatusCheckingQuota       Status = "checking_quota"
	StatusQuotaReserved       Status = "quota_reserved"
	StatusQuotaExhausted      Status = "quota_exhausted"
	StatusBooking             Status = "booking"
	StatusCompleted           Status = "completed"
	StatusFailed              Status = "failed"
	StatusCompensating        Status = "compensating"
	StatusCompensated         Status = "compensated"
)

// Terminal reports whether no further pipeline step may run for this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCompensated
}

// TransactionState is the aggregate root for one booking request, persisted
// as a single JSON record keyed by RequestID. RequestID is assigned at
// creation and never reassigned.
type TransactionState struct {
	RequestID          string           `json:"request_id"`
	Status             Status           `json:"status"`
	User               User             `json:"user"`
	ServiceIDs         []string         `json:"service_ids"`
	Services           []MedicalService `json:"services"`
	BasePrice          float64          `json:"base_price"`
	FinalPrice         float64          `json:"final_price"`
	DiscountApplied    bool             `json:"discount_applied"`
	DiscountPercentage float64          `json:"discount_percentage"`
	DiscountReason     string           `json:"discount_reason,omitempty"`
	R1Eligible         bool             `json:"r1_eligible"`
	QuotaReserved      bool             `json:"quota_reserved"`
	QuotaKey           string           `json:"quota_key,omitempty"`
	ReferenceID        string           `json:"reference_id,omitempty"`
	ErrorMessage       string           `json:"error_message,omitempty"`
	Events             []Event          `json:"events"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewTransactionState creates a fresh transaction for the given user and
// selection. The request id is the first 8 hex characters of a UUID,
// uppercased, which keeps it short enough to read aloud while remaining
// unique for the record's bounded lifetime.
func NewTransactionState(user User, serviceIDs []string) *TransactionState {
	now := time.Now().UTC()
	return &TransactionState{
		RequestID:  strings.ToUpper(uuid.NewString()[:8]),
		Status:     StatusInitiated,
		User:       user,
		ServiceIDs: serviceIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddEvent appends an entry to the audit trail and bumps UpdatedAt. The trail
// is append-only; callers must not remove or reorder entries.
func (t *TransactionState) AddEvent(typ EventType, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	now := time.Now().UTC()
	t.Events = append(t.Events, Event{
		Type:      typ,
		Message:   message,
		Details:   details,
		Timestamp: now,
	})
	t.UpdatedAt = now
}
