package saga

import (
	"context"
	"log"
	"strings"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

// Compensator reverses committed side effects of a failed transaction. The
// only compensable resource today is the quota reservation; the record
// mutations themselves need no undo because the final status tells the whole
// story.
type Compensator struct {
	store  StateStore
	events EventAppender
	quota  QuotaArbiter
}

// NewCompensator wires the compensation handler.
func NewCompensator(store StateStore, events EventAppender, quota QuotaArbiter) *Compensator {
	return &Compensator{store: store, events: events, quota: quota}
}

// Compensate rolls back whatever the failed transaction committed and moves
// it to the terminal compensated status. Compensation is best-effort: a
// failed release is recorded in the event trail but does not block the status
// advance, leaving quota_reserved as the indicator of outstanding repair
// work. It returns false when any rollback action failed.
func (c *Compensator) Compensate(ctx context.Context, state *model.TransactionState) bool {
	log.Printf("compensation: start request=%s status=%s quota_reserved=%t", state.RequestID, state.Status, state.QuotaReserved)

	state.Status = model.StatusCompensating
	state.AddEvent(model.EventCompensationStarted, "Starting compensation for failed transaction", nil)
	if err := c.store.Save(ctx, state); err != nil {
		log.Printf("compensation: persist %s: %v", state.RequestID, err)
	}
	if _, err := c.events.Append(ctx, model.EventCompensationStarted, state.RequestID, nil); err != nil {
		log.Printf("compensation: publish started %s: %v", state.RequestID, err)
	}

	var actions []string
	success := true

	if state.QuotaReserved {
		if err := c.quota.Release(ctx, state.QuotaKey); err != nil {
			actions = append(actions, "Quota release FAILED")
			success = false
			log.Printf("compensation: quota release failed request=%s: %v", state.RequestID, err)
		} else {
			actions = append(actions, "Quota released")
			state.QuotaReserved = false
			log.Printf("compensation: quota released request=%s", state.RequestID)
		}
	}

	summary := strings.Join(actions, ", ")
	if summary == "" {
		summary = "None required"
	}
	state.Status = model.StatusCompensated
	state.AddEvent(model.EventCompensationCompleted,
		"Compensation completed. Actions: "+summary,
		map[string]any{"actions": actions})
	if err := c.store.Save(ctx, state); err != nil {
		log.Printf("compensation: persist %s: %v", state.RequestID, err)
	}
	if _, err := c.events.Append(ctx, model.EventCompensationCompleted, state.RequestID, map[string]any{"actions": actions}); err != nil {
		log.Printf("compensation: publish completed %s: %v", state.RequestID, err)
	}

	log.Printf("compensation: completed request=%s actions=%q", state.RequestID, summary)
	return success
}

// FailAndCompensate forces the transaction to failed with the given message,
// persists it, and runs compensation. Both coordinators route every failure
// through here so their outcomes stay indistinguishable.
func (c *Compensator) FailAndCompensate(ctx context.Context, state *model.TransactionState, errMsg string) {
	if errMsg == "" {
		errMsg = "Process failed"
	}
	state.Status = model.StatusFailed
	state.ErrorMessage = errMsg
	state.AddEvent(model.EventBookingFailed, "Transaction failed: "+errMsg, nil)
	if err := c.store.Save(ctx, state); err != nil {
		log.Printf("compensation: persist failed state %s: %v", state.RequestID, err)
	}
	log.Printf("compensation: triggered request=%s error=%q", state.RequestID, errMsg)
	c.Compensate(ctx, state)
}
