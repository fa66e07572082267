package saga

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

// quotaExhaustedMessage is the user-facing message for the R2 limit.
const quotaExhaustedMessage = "Daily discount quota reached. Please try again tomorrow."

// ReserveQuota enforces the daily discount cap (R2 rule). Transactions that
// are not discount-eligible skip the check and trivially succeed.
//
// The counter is incremented before the cap is checked: the reservation
// commits first, and an over-cap result then fails the step, leaving the
// release to compensation. Reserving first avoids a check-then-increment race
// between concurrent reservers at the cost of a transient over-count, which
// compensation always corrects. quota_reserved is therefore set on both the
// success and the over-cap path.
func (s *Steps) ReserveQuota(ctx context.Context, state *model.TransactionState) Result {
	if !state.R1Eligible {
		log.Printf("quota: skip request=%s (not discount eligible)", state.RequestID)
		return Result{Success: true, Message: "Quota check skipped (not eligible for discount)"}
	}

	log.Printf("quota: check request=%s", state.RequestID)
	state.Status = model.StatusCheckingQuota
	state.AddEvent(model.EventQuotaCheckStarted, "Checking daily discount quota availability", nil)
	if err := s.persist(ctx, state); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("quota check error: %v", err))
	}
	if err := s.publish(ctx, model.EventQuotaCheckStarted, state.RequestID, nil); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("quota check error: %v", err))
	}

	count, key, err := s.quota.Reserve(ctx)
	if err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("quota check error: %v", err))
	}
	cap := int64(s.cfg.DailyDiscountQuota)

	if count <= cap {
		state.QuotaReserved = true
		state.QuotaKey = key
		state.DiscountApplied = true
		state.FinalPrice = roundCurrency(state.BasePrice * (1 - state.DiscountPercentage/100))
		state.Status = model.StatusQuotaReserved
		state.AddEvent(model.EventQuotaReserved,
			fmt.Sprintf("Discount quota reserved. Slot %d/%d", count, cap),
			map[string]any{"slot": count, "max": cap})
		if err := s.persist(ctx, state); err != nil {
			return s.unexpected(ctx, state, fmt.Sprintf("quota check error: %v", err))
		}
		if err := s.publish(ctx, model.EventQuotaReserved, state.RequestID, map[string]any{"slot": count}); err != nil {
			return s.unexpected(ctx, state, fmt.Sprintf("quota check error: %v", err))
		}
		log.Printf("quota: reserved request=%s slot=%d/%d final=%.2f", state.RequestID, count, cap, state.FinalPrice)
		return Result{Success: true, Message: fmt.Sprintf("Quota reserved (slot %d/%d)", count, cap)}
	}

	// Over the cap: the increment has already committed. Record the
	// reservation, then fail the check; compensation releases the slot.
	state.QuotaReserved = true
	state.QuotaKey = key
	state.Status = model.StatusQuotaExhausted
	state.ErrorMessage = quotaExhaustedMessage
	state.AddEvent(model.EventQuotaReservedOverCap,
		fmt.Sprintf("Quota slot reserved (over limit: %d/%d); check will fail", count, cap),
		map[string]any{"current_count": count, "max": cap})
	state.AddEvent(model.EventQuotaExhausted,
		"Daily discount quota exceeded. Compensation will release reserved slot.",
		map[string]any{"current_count": count, "max": cap})
	if err := s.persist(ctx, state); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("quota check error: %v", err))
	}
	// Only quota.exhausted goes to the stream so choreography routes to
	// compensation rather than booking.
	if err := s.publish(ctx, model.EventQuotaExhausted, state.RequestID, nil); err != nil {
		log.Printf("quota: publish exhausted event for %s: %v", state.RequestID, err)
	}
	log.Printf("quota: exhausted request=%s count=%d/%d", state.RequestID, count, cap)
	return Result{Success: false, Message: quotaExhaustedMessage, Kind: FailureQuotaExhausted}
}

// roundCurrency rounds to two decimal places.
func roundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
