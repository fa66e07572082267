package saga

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Book finalizes the transaction: it generates a booking reference and marks
// the record completed. The step has no compensable side effect beyond the
// record mutation itself. When the failure-simulation flag is set the step
// fails unconditionally (test hook).
func (s *Steps) Book(ctx context.Context, state *model.TransactionState) Result {
	log.Printf("booking: start request=%s user=%q final=%.2f", state.RequestID, state.User.Name, state.FinalPrice)

	state.Status = model.StatusBooking
	state.AddEvent(model.EventBookingStarted, "Creating booking record", nil)
	if err := s.persist(ctx, state); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("booking error: %v", err))
	}
	if err := s.publish(ctx, model.EventBookingStarted, state.RequestID, nil); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("booking error: %v", err))
	}

	if s.flag.Enabled(ctx) {
		msg := "Booking failed: simulated booking failure for testing"
		state.Status = model.StatusFailed
		state.ErrorMessage = msg
		state.AddEvent(model.EventBookingFailed, msg, nil)
		if err := s.persist(ctx, state); err != nil {
			return s.unexpected(ctx, state, fmt.Sprintf("booking error: %v", err))
		}
		if err := s.publish(ctx, model.EventBookingFailed, state.RequestID, map[string]any{"error": msg}); err != nil {
			log.Printf("booking: publish failure event for %s: %v", state.RequestID, err)
		}
		log.Printf("booking: failed request=%s error=%q", state.RequestID, msg)
		return Result{Success: false, Message: msg, Kind: FailureBooking}
	}

	referenceID := s.generateReferenceID()
	state.ReferenceID = referenceID
	state.Status = model.StatusCompleted
	state.AddEvent(model.EventBookingCompleted,
		"Booking confirmed with reference: "+referenceID,
		map[string]any{"reference_id": referenceID, "final_price": state.FinalPrice, "discount_applied": state.DiscountApplied})
	if err := s.persist(ctx, state); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("booking error: %v", err))
	}
	if err := s.publish(ctx, model.EventBookingCompleted, state.RequestID, map[string]any{"reference_id": referenceID}); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("booking error: %v", err))
	}

	if s.notifier != nil {
		// Best-effort; a broker outage must not fail a completed booking.
		if err := s.notifier.BookingConfirmed(ctx, state); err != nil {
			log.Printf("booking: notify confirmed %s: %v", state.RequestID, err)
		}
	}

	log.Printf("booking: completed request=%s reference=%s final=%.2f", state.RequestID, referenceID, state.FinalPrice)
	return Result{Success: true, Message: "Booking confirmed: " + referenceID}
}

// generateReferenceID builds a reference of the form BK-YYYYMMDD-XXXX with a
// short random suffix.
func (s *Steps) generateReferenceID() string {
	date := strings.ReplaceAll(s.cfg.Today(), "-", "")
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = referenceAlphabet[rand.Intn(len(referenceAlphabet))]
	}
	return fmt.Sprintf("BK-%s-%s", date, suffix)
}
