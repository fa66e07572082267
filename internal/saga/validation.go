package saga

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/iliyamo/clinic-booking-saga/internal/catalog"
	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

// Validate checks the user input and resolves the selected service ids
// against the gender-partitioned catalog. On success it populates
// state.Services and advances to validation_completed; on invalid input it
// fails the transaction and publishes validation.failed.
func (s *Steps) Validate(ctx context.Context, state *model.TransactionState) Result {
	log.Printf("validation: start request=%s user=%q services=%v", state.RequestID, state.User.Name, state.ServiceIDs)

	state.Status = model.StatusValidating
	state.AddEvent(model.EventValidationStarted, "Starting validation of user input and services", nil)
	if err := s.persist(ctx, state); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("validation error: %v", err))
	}
	if err := s.publish(ctx, model.EventValidationStarted, state.RequestID, map[string]any{"user_name": state.User.Name}); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("validation error: %v", err))
	}

	services, err := s.resolveSelection(state)
	if err != nil {
		msg := err.Error()
		state.Status = model.StatusFailed
		state.ErrorMessage = msg
		state.AddEvent(model.EventValidationFailed, "Validation failed: "+msg, nil)
		if perr := s.persist(ctx, state); perr != nil {
			return s.unexpected(ctx, state, fmt.Sprintf("validation error: %v", perr))
		}
		if perr := s.publish(ctx, model.EventValidationFailed, state.RequestID, map[string]any{"error": msg}); perr != nil {
			log.Printf("validation: publish failure event for %s: %v", state.RequestID, perr)
		}
		log.Printf("validation: failed request=%s error=%q", state.RequestID, msg)
		return Result{Success: false, Message: msg, Kind: FailureInvalidInput}
	}

	names := make([]string, len(services))
	for i, svc := range services {
		names[i] = svc.Name
	}
	state.Services = services
	state.Status = model.StatusValidationCompleted
	state.AddEvent(model.EventValidationCompleted,
		fmt.Sprintf("Validation successful. %d services selected.", len(services)),
		map[string]any{"services": names})
	if err := s.persist(ctx, state); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("validation error: %v", err))
	}
	if err := s.publish(ctx, model.EventValidationCompleted, state.RequestID, map[string]any{"service_count": len(services)}); err != nil {
		return s.unexpected(ctx, state, fmt.Sprintf("validation error: %v", err))
	}

	log.Printf("validation: completed request=%s services=%v", state.RequestID, names)
	return Result{Success: true, Message: "Validation successful"}
}

// resolveSelection applies the input rules: a readable name, a non-empty
// selection, and every id present in the user's catalog partition.
func (s *Steps) resolveSelection(state *model.TransactionState) ([]model.MedicalService, error) {
	if len(strings.TrimSpace(state.User.Name)) < 2 {
		return nil, fmt.Errorf("name must be at least 2 characters long")
	}
	if len(state.ServiceIDs) == 0 {
		return nil, fmt.Errorf("at least one service must be selected")
	}
	return catalog.Resolve(state.ServiceIDs, state.User.Gender)
}
