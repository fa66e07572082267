package saga

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
	"github.com/iliyamo/clinic-booking-saga/internal/store"
)

const (
	dispatchBatchSize    = 5
	dispatchBlockTimeout = 2 * time.Second
	dispatchRetryDelay   = time.Second
)

// Dispatcher is the choreography coordinator: a single consumer tailing the
// shared event stream and invoking the next pipeline step for each event it
// sees. It starts at the stream's current tail, so events appended before
// startup are never replayed; a transaction that ran entirely before this
// instance started is invisible to it.
//
// Within one transaction the steps run strictly in pipeline order because
// each is triggered only by its predecessor's completion event. Nothing
// enforces at-most-one in-flight step per request id; the single-consumer
// deployment is what keeps that assumption true.
type Dispatcher struct {
	steps  *Steps
	comp   *Compensator
	store  StateStore
	events EventAppender
	stream EventStream
}

// NewDispatcher wires the choreography coordinator.
func NewDispatcher(steps *Steps, comp *Compensator, st StateStore, events EventAppender, stream EventStream) *Dispatcher {
	return &Dispatcher{steps: steps, comp: comp, store: st, events: events, stream: stream}
}

// Run tails the event stream until ctx is cancelled. Read errors are logged
// and retried after a short delay so a transient Redis outage does not kill
// the consumer.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("dispatcher: starting stream consumer")
	lastID := store.NowCursor
	for {
		if ctx.Err() != nil {
			log.Printf("dispatcher: shutting down")
			return
		}
		entries, err := d.stream.Read(ctx, lastID, dispatchBatchSize, dispatchBlockTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Printf("dispatcher: read error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(dispatchRetryDelay):
			}
			continue
		}
		for _, e := range entries {
			lastID = e.ID
			if e.EventType == "" || e.RequestID == "" {
				continue
			}
			log.Printf("dispatcher: reacting to %q for %s", e.EventType, e.RequestID)
			d.HandleEvent(ctx, e.EventType, e.RequestID)
		}
	}
}

// HandleEvent routes one event to the next step via the fixed routing table.
// Any panic or unexpected step failure forces the transaction to failed and
// runs compensation, so every transaction reaches a terminal status even on
// errors the steps did not anticipate.
func (d *Dispatcher) HandleEvent(ctx context.Context, typ model.EventType, requestID string) {
	state, err := d.store.Get(ctx, requestID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("dispatcher: load %s: %v", requestID, err)
		}
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatcher: panic handling %q for %s: %v", typ, requestID, r)
			d.comp.FailAndCompensate(ctx, state, fmt.Sprintf("Unexpected error: %v", r))
		}
	}()

	var res Result
	switch typ {
	case model.EventBookingInitiated:
		res = d.steps.Validate(ctx, state)

	case model.EventValidationCompleted:
		res = d.steps.Price(ctx, state)

	case model.EventPricingCompleted:
		if state.R1Eligible {
			res = d.steps.ReserveQuota(ctx, state)
		} else {
			// Skip the quota step entirely; synthesize the reserved event so
			// the pipeline continues to booking.
			if _, err := d.events.Append(ctx, model.EventQuotaReserved, requestID,
				map[string]any{"skipped": true, "reason": "Not discount eligible"}); err != nil {
				d.comp.FailAndCompensate(ctx, state, fmt.Sprintf("Unexpected error: %v", err))
			}
			return
		}

	case model.EventQuotaReserved:
		res = d.steps.Book(ctx, state)

	case model.EventValidationFailed, model.EventQuotaExhausted, model.EventBookingFailed:
		d.comp.FailAndCompensate(ctx, state, state.ErrorMessage)
		return

	case model.EventValidationStarted, model.EventPricingStarted, model.EventQuotaCheckStarted,
		model.EventQuotaReservedOverCap, model.EventBookingStarted, model.EventBookingCompleted,
		model.EventCompensationStarted, model.EventCompensationCompleted:
		// Progress and terminal events carry no routing action.
		return

	default:
		log.Printf("dispatcher: ignoring unknown event type %q", typ)
		return
	}

	// Domain failures publish their own failure events and are compensated on
	// a later iteration; only unexpected failures are handled here.
	if !res.Success && res.Kind == FailureUnexpected {
		d.comp.FailAndCompensate(ctx, state, res.Message)
	}
}
