package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
	"github.com/iliyamo/clinic-booking-saga/internal/saga"
	"github.com/iliyamo/clinic-booking-saga/internal/store"
)

// StepHandler exposes one endpoint per pipeline step for external workflow
// orchestrators (e.g. a cloud workflow engine driving the saga over HTTP).
// Each endpoint takes a request id, loads the persisted record, and invokes
// the step exactly as the internal coordinators would, so externally driven
// transactions are indistinguishable from internally driven ones.
type StepHandler struct {
	steps *saga.Steps
	comp  *saga.Compensator
	store saga.StateStore
}

// NewStepHandler constructs a StepHandler.
func NewStepHandler(steps *saga.Steps, comp *saga.Compensator, st saga.StateStore) *StepHandler {
	return &StepHandler{steps: steps, comp: comp, store: st}
}

type stepRequest struct {
	RequestID string `json:"request_id"`
}

// Validate handles POST /v1/steps/validate.
func (h *StepHandler) Validate(c echo.Context) error {
	state, resp := h.loadStep(c)
	if state == nil {
		return resp
	}
	res := h.steps.Validate(c.Request().Context(), state)
	return c.JSON(http.StatusOK, echo.Map{"success": res.Success, "message": res.Message})
}

// Price handles POST /v1/steps/price. The response includes discount
// eligibility so the external orchestrator can decide whether to call the
// quota step.
func (h *StepHandler) Price(c echo.Context) error {
	state, resp := h.loadStep(c)
	if state == nil {
		return resp
	}
	res := h.steps.Price(c.Request().Context(), state)
	return c.JSON(http.StatusOK, echo.Map{"success": res.Success, "message": res.Message, "r1_eligible": state.R1Eligible})
}

// ReserveQuota handles POST /v1/steps/reserve-quota.
func (h *StepHandler) ReserveQuota(c echo.Context) error {
	state, resp := h.loadStep(c)
	if state == nil {
		return resp
	}
	res := h.steps.ReserveQuota(c.Request().Context(), state)
	return c.JSON(http.StatusOK, echo.Map{"success": res.Success, "message": res.Message})
}

// CreateBooking handles POST /v1/steps/create-booking.
func (h *StepHandler) CreateBooking(c echo.Context) error {
	state, resp := h.loadStep(c)
	if state == nil {
		return resp
	}
	res := h.steps.Book(c.Request().Context(), state)
	return c.JSON(http.StatusOK, echo.Map{"success": res.Success, "message": res.Message, "reference_id": state.ReferenceID})
}

// ReleaseQuota handles POST /v1/steps/release-quota: the compensation entry
// point for external orchestrators. A missing record counts as success, since
// there is nothing left to compensate.
func (h *StepHandler) ReleaseQuota(c echo.Context) error {
	var body stepRequest
	if err := c.Bind(&body); err != nil || body.RequestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request_id is required"})
	}
	ctx := c.Request().Context()
	state, err := h.store.Get(ctx, body.RequestID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "No state to compensate"})
	}
	if err != nil {
		log.Printf("step-api: load %s: %v", body.RequestID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	ok := h.comp.Compensate(ctx, state)
	msg := "Quota released"
	if !ok {
		msg = "Release failed"
	}
	return c.JSON(http.StatusOK, echo.Map{"success": ok, "message": msg})
}

// loadStep binds the {request_id} body and loads the record, writing the
// error response itself when that fails. A nil state means the response has
// already been written.
func (h *StepHandler) loadStep(c echo.Context) (*model.TransactionState, error) {
	var body stepRequest
	if err := c.Bind(&body); err != nil || body.RequestID == "" {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "request_id is required"})
	}
	state, err := h.store.Get(c.Request().Context(), body.RequestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, c.JSON(http.StatusOK, echo.Map{"success": false, "message": "Booking not found"})
	}
	if err != nil {
		log.Printf("step-api: load %s: %v", body.RequestID, err)
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	return state, nil
}
