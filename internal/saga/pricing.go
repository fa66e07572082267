package saga

import (
	"context"
	"fmt"
	"log"

	"github.com/iliyamo/clinic-booking-saga/internal/catalog"
	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

// Price computes the base price as the exact sum of the resolved service
// prices and evaluates discount eligibility (R1 rule). The two rules are
// disjoint and checked in order: female user on their birthday first, then
// high-value order. For eligible transactions the final price stays at the
// base price here; the discount is only applied after the quota check
// confirms a slot.
func (s *Steps) Price(ctx context.Context, state *model.TransactionState) Result {
	log.Printf("pricing: start request=%s", state.RequestID)

	state.Status = model.StatusPricing
	state.AddEvent(model.EventPricingStarted, "Starting price calculation", nil)
	if err := s.persist(ctx, state); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("pricing error: %v", err))
	}
	if err := s.publish(ctx, model.EventPricingStarted, state.RequestID, nil); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("pricing error: %v", err))
	}

	basePrice := catalog.BasePrice(state.Services)
	state.BasePrice = basePrice

	eligible, reason := s.discountEligibility(state.User, basePrice)
	state.R1Eligible = eligible
	if eligible {
		state.DiscountPercentage = s.cfg.DiscountPercentage
		state.DiscountReason = reason
		// Tentative: the discounted price is set only once quota is reserved.
		state.FinalPrice = basePrice
		log.Printf("pricing: discount eligible request=%s reason=%q base=%.2f", state.RequestID, reason, basePrice)
	} else {
		state.DiscountApplied = false
		state.DiscountPercentage = 0
		state.FinalPrice = basePrice
	}

	state.Status = model.StatusPricingCompleted
	state.AddEvent(model.EventPricingCompleted,
		fmt.Sprintf("Base price: %.2f. R1 eligible: %t", basePrice, eligible),
		map[string]any{"base_price": basePrice, "r1_eligible": eligible, "discount_reason": reason})
	if err := s.persist(ctx, state); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("pricing error: %v", err))
	}
	if err := s.publish(ctx, model.EventPricingCompleted, state.RequestID, map[string]any{"base_price": basePrice, "r1_eligible": eligible}); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("pricing error: %v", err))
	}

	return Result{Success: true, Message: fmt.Sprintf("Pricing completed. Base price: %.2f", basePrice)}
}

// discountEligibility applies the R1 rule: first match wins, the rules never
// combine. Birthday comparison uses the configured local timezone.
func (s *Steps) discountEligibility(user model.User, basePrice float64) (bool, string) {
	if user.Gender == model.GenderFemale && s.isBirthdayToday(user.DateOfBirth) {
		return true, "Birthday discount (Female)"
	}
	if basePrice > s.cfg.HighValueThreshold {
		return true, fmt.Sprintf("High-value order (>%.0f)", s.cfg.HighValueThreshold)
	}
	return false, ""
}

func (s *Steps) isBirthdayToday(dob model.Date) bool {
	today := s.cfg.Now()
	return dob.Month() == today.Month() && dob.Day() == today.Day()
}
