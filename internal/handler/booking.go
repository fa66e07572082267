package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-booking-saga/internal/catalog"
	"github.com/iliyamo/clinic-booking-saga/internal/model"
	"github.com/iliyamo/clinic-booking-saga/internal/saga"
	"github.com/iliyamo/clinic-booking-saga/internal/store"
)

const (
	streamPollInterval = 500 * time.Millisecond
	streamMaxWait      = 60 * time.Second
)

// BookingHandler exposes the booking surface: submission, result and status
// queries, the live status stream, and the service catalog listing.
// Submission is fire-and-forget relative to the saga: it persists the initial
// record, appends the created event, and returns immediately; the
// choreography dispatcher picks the transaction up from the stream.
type BookingHandler struct {
	store  saga.StateStore
	events saga.EventAppender
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(st saga.StateStore, events saga.EventAppender) *BookingHandler {
	return &BookingHandler{store: st, events: events}
}

// bookingRequest is the submit-transaction payload.
type bookingRequest struct {
	User       model.User `json:"user"`
	ServiceIDs []string   `json:"service_ids"`
}

// Submit handles POST /v1/bookings. Input is checked only far enough to
// build a well-formed transaction; business validation (name length, catalog
// membership) belongs to the validation step so that it shows up in the
// transaction's event trail.
func (h *BookingHandler) Submit(c echo.Context) error {
	var req bookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.User.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user.name is required"})
	}
	if !req.User.Gender.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user.gender must be 'male' or 'female'"})
	}
	if req.User.DateOfBirth.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user.date_of_birth is required"})
	}
	if req.User.DateOfBirth.After(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date of birth cannot be in the future"})
	}
	if len(req.ServiceIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_ids is required"})
	}

	ctx := c.Request().Context()
	state := model.NewTransactionState(req.User, req.ServiceIDs)
	log.Printf("booking-api: received request=%s user=%q services=%v", state.RequestID, req.User.Name, req.ServiceIDs)

	state.AddEvent(model.EventBookingInitiated, "Booking request initiated for "+req.User.Name, nil)
	if err := h.store.Save(ctx, state); err != nil {
		log.Printf("booking-api: save %s: %v", state.RequestID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to persist booking"})
	}
	if _, err := h.events.Append(ctx, model.EventBookingInitiated, state.RequestID, map[string]any{"user_name": req.User.Name}); err != nil {
		log.Printf("booking-api: publish initiated %s: %v", state.RequestID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to publish booking event"})
	}

	return c.JSON(http.StatusAccepted, echo.Map{
		"request_id": state.RequestID,
		"status":     state.Status,
		"message":    "Booking request received and being processed",
	})
}

// Result handles GET /v1/bookings/:id/result and returns the client-facing
// outcome derived purely from the stored record.
func (h *BookingHandler) Result(c echo.Context) error {
	state, err := h.load(c)
	if state == nil {
		return err
	}
	return c.JSON(http.StatusOK, model.BuildResult(state))
}

// Status handles GET /v1/bookings/:id/status and returns the current status
// plus the full event trail.
func (h *BookingHandler) Status(c echo.Context) error {
	state, err := h.load(c)
	if state == nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"request_id":    state.RequestID,
		"status":        state.Status,
		"events":        state.Events,
		"error_message": state.ErrorMessage,
	})
}

// Stream handles GET /v1/bookings/:id/stream as Server-Sent Events. It polls
// the record on a fixed interval, emits every newly appended event, and once
// the status is terminal sends the final result and closes. The stream gives
// up after a bounded wait; the timeout is read-side only and does not affect
// saga execution.
func (h *BookingHandler) Stream(c echo.Context) error {
	requestID := c.Param("id")
	if requestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request id is required"})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	sent := 0
	deadline := time.Now().Add(streamMaxWait)
	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	for {
		state, err := h.store.Get(ctx, requestID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeSSE(resp, echo.Map{"error": "booking not found"})
			} else {
				writeSSE(resp, echo.Map{"error": "failed to load booking"})
			}
			return nil
		}

		for ; sent < len(state.Events); sent++ {
			ev := state.Events[sent]
			writeSSE(resp, echo.Map{
				"request_id": state.RequestID,
				"status":     state.Status,
				"message":    ev.Message,
				"timestamp":  ev.Timestamp,
				"details":    ev.Details,
			})
		}

		if state.Status.Terminal() {
			writeSSE(resp, echo.Map{"final_result": model.BuildResult(state)})
			return nil
		}
		if time.Now().After(deadline) {
			writeSSE(resp, echo.Map{"error": "timeout waiting for booking completion"})
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Services handles GET /v1/services/:gender and lists the catalog partition.
func (h *BookingHandler) Services(c echo.Context) error {
	gender := model.Gender(strings.ToLower(c.Param("gender")))
	services, err := catalog.ByGender(gender)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid gender, use 'male' or 'female'"})
	}
	return c.JSON(http.StatusOK, echo.Map{"gender": gender, "services": services})
}

// load fetches the record for the :id path parameter. On failure it writes
// the error response itself and returns a nil state; callers must return the
// accompanying error without touching the state.
func (h *BookingHandler) load(c echo.Context) (*model.TransactionState, error) {
	requestID := c.Param("id")
	if requestID == "" {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "request id is required"})
	}
	state, err := h.store.Get(c.Request().Context(), requestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	if err != nil {
		log.Printf("booking-api: load %s: %v", requestID, err)
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	return state, nil
}

// writeSSE writes one Server-Sent Events frame and flushes it.
func writeSSE(resp *echo.Response, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(resp, "data: %s\n\n", data)
	resp.Flush()
}
