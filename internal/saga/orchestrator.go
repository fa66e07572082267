package saga

import (
	"context"
	"fmt"
	"log"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

// Orchestrator is the synchronous coordinator: it runs the same four steps as
// the Dispatcher in one call chain, short-circuiting to the result builder on
// the first failure. Every failure path goes through the shared Compensator,
// so for identical inputs and identical external state the final transaction
// record matches the choreography outcome, event timestamps aside.
type Orchestrator struct {
	steps  *Steps
	comp   *Compensator
	store  StateStore
	events EventAppender
}

// NewOrchestrator wires the synchronous coordinator.
func NewOrchestrator(steps *Steps, comp *Compensator, st StateStore, events EventAppender) *Orchestrator {
	return &Orchestrator{steps: steps, comp: comp, store: st, events: events}
}

// Execute creates a transaction for the request and drives it to a terminal
// status. The returned result is derived from the final record; the state is
// returned alongside for callers that need the full audit trail.
func (o *Orchestrator) Execute(ctx context.Context, user model.User, serviceIDs []string) (model.BookingResult, *model.TransactionState) {
	state := model.NewTransactionState(user, serviceIDs)
	log.Printf("orchestrator: saga started request=%s user=%q services=%v", state.RequestID, user.Name, serviceIDs)

	state.AddEvent(model.EventBookingInitiated, "Booking request initiated for "+user.Name, nil)
	if err := o.store.Save(ctx, state); err != nil {
		o.comp.FailAndCompensate(ctx, state, fmt.Sprintf("Unexpected error: %v", err))
		return model.BuildResult(state), state
	}
	if _, err := o.events.Append(ctx, model.EventBookingInitiated, state.RequestID, map[string]any{"user_name": user.Name}); err != nil {
		log.Printf("orchestrator: publish initiated %s: %v", state.RequestID, err)
	}

	if res := o.steps.Validate(ctx, state); !res.Success {
		return o.fail(ctx, state, res)
	}
	if res := o.steps.Price(ctx, state); !res.Success {
		return o.fail(ctx, state, res)
	}
	if state.R1Eligible {
		if res := o.steps.ReserveQuota(ctx, state); !res.Success {
			return o.fail(ctx, state, res)
		}
	}
	if res := o.steps.Book(ctx, state); !res.Success {
		return o.fail(ctx, state, res)
	}

	log.Printf("orchestrator: saga completed request=%s reference=%s final=%.2f", state.RequestID, state.ReferenceID, state.FinalPrice)
	return model.BuildResult(state), state
}

func (o *Orchestrator) fail(ctx context.Context, state *model.TransactionState, res Result) (model.BookingResult, *model.TransactionState) {
	msg := state.ErrorMessage
	if msg == "" {
		msg = res.Message
	}
	o.comp.FailAndCompensate(ctx, state, msg)
	return model.BuildResult(state), state
}
