// Package saga implements the booking transaction as a sequence of local
// steps with compensating rollbacks. The four pipeline steps share a uniform
// contract and are coordinated either by the choreography Dispatcher, which
// reacts to events on the shared stream, or by the Orchestrator, which calls
// them synchronously. Both coordinators converge every failure path on the
// Compensator, so a transaction always reaches a terminal status.
package saga

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/clinic-booking-saga/internal/config"
	"github.com/iliyamo/clinic-booking-saga/internal/model"
	"github.com/iliyamo/clinic-booking-saga/internal/store"
)

// FailureKind classifies a step failure. Domain failures (invalid input,
// exhausted quota, booking failure) are published as events and routed to
// compensation by the coordinator; unexpected failures are compensated
// immediately at the dispatch boundary.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureInvalidInput   FailureKind = "invalid_input"
	FailureQuotaExhausted FailureKind = "quota_exhausted"
	FailureBooking        FailureKind = "booking_failure"
	FailureUnexpected     FailureKind = "unexpected_error"
)

// Result is the uniform outcome of one pipeline step. Steps mutate the
// transaction state in place, persist it, and report success or failure here
// instead of raising past their boundary.
type Result struct {
	Success bool
	Message string
	Kind    FailureKind
}

// StateStore persists transaction records by request id.
type StateStore interface {
	Save(ctx context.Context, state *model.TransactionState) error
	Get(ctx context.Context, requestID string) (*model.TransactionState, error)
}

// EventAppender appends domain events to the shared event stream.
type EventAppender interface {
	Append(ctx context.Context, typ model.EventType, requestID string, data map[string]any) (string, error)
}

// EventStream tails the shared event stream for the dispatcher.
type EventStream interface {
	Read(ctx context.Context, lastID string, count int64, block time.Duration) ([]store.StreamEntry, error)
}

// QuotaArbiter reserves and releases daily discount quota slots.
type QuotaArbiter interface {
	Reserve(ctx context.Context) (count int64, key string, err error)
	Release(ctx context.Context, key string) error
}

// FailureFlag reports whether booking failures are currently simulated.
type FailureFlag interface {
	Enabled(ctx context.Context) bool
}

// Notifier receives completed bookings for out-of-band delivery (e.g. a
// message queue). Notification is best-effort and never fails the saga.
type Notifier interface {
	BookingConfirmed(ctx context.Context, state *model.TransactionState) error
}

// Steps bundles the four pipeline steps with their external handles. All
// handles are injected at construction; there is no package-level state.
type Steps struct {
	store    StateStore
	events   EventAppender
	quota    QuotaArbiter
	flag     FailureFlag
	notifier Notifier // optional, may be nil
	cfg      config.Config
}

// NewSteps wires the pipeline steps. notifier may be nil.
func NewSteps(store StateStore, events EventAppender, quota QuotaArbiter, flag FailureFlag, notifier Notifier, cfg config.Config) *Steps {
	return &Steps{store: store, events: events, quota: quota, flag: flag, notifier: notifier, cfg: cfg}
}

// persist saves the record, reporting the error for the caller to classify.
func (s *Steps) persist(ctx context.Context, state *model.TransactionState) error {
	return s.store.Save(ctx, state)
}

// publish appends an event to the shared stream. Progress events are what
// drive the choreography, so a publish failure is surfaced to the step.
func (s *Steps) publish(ctx context.Context, typ model.EventType, requestID string, data map[string]any) error {
	_, err := s.events.Append(ctx, typ, requestID, data)
	return err
}

// unexpected marks the transaction failed with the given message and persists
// it best-effort. Used for infrastructure errors inside a step.
func (s *Steps) unexpected(ctx context.Context, state *model.TransactionState, msg string) Result {
	state.Status = model.StatusFailed
	state.ErrorMessage = msg
	if err := s.persist(ctx, state); err != nil {
		log.Printf("saga: persist failed state %s: %v", state.RequestID, err)
	}
	return Result{Success: false, Message: msg, Kind: FailureUnexpected}
}
