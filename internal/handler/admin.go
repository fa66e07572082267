package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-booking-saga/internal/config"
	"github.com/iliyamo/clinic-booking-saga/internal/quota"
	"github.com/iliyamo/clinic-booking-saga/internal/store"
)

// AdminHandler exposes the test-only admin hooks: reading and manipulating
// today's quota counter and toggling the booking failure simulation. These
// endpoints exist for test scenarios and must not be exposed publicly.
type AdminHandler struct {
	arbiter *quota.Arbiter
	flag    *store.FailureFlag
	cfg     config.Config
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(arbiter *quota.Arbiter, flag *store.FailureFlag, cfg config.Config) *AdminHandler {
	return &AdminHandler{arbiter: arbiter, flag: flag, cfg: cfg}
}

// QuotaStatus handles GET /v1/admin/quota.
func (h *AdminHandler) QuotaStatus(c echo.Context) error {
	count, err := h.arbiter.Count(c.Request().Context())
	if err != nil {
		log.Printf("admin: read quota: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read quota"})
	}
	remaining := int64(h.cfg.DailyDiscountQuota) - count
	if remaining < 0 {
		remaining = 0
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":          h.cfg.Today(),
		"current_count": count,
		"max_quota":     h.cfg.DailyDiscountQuota,
		"remaining":     remaining,
	})
}

// ResetQuota handles POST /v1/admin/quota/reset.
func (h *AdminHandler) ResetQuota(c echo.Context) error {
	if err := h.arbiter.Reset(c.Request().Context()); err != nil {
		log.Printf("admin: reset quota: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to reset quota"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "quota reset"})
}

// SetQuota handles POST /v1/admin/quota/set/:count.
func (h *AdminHandler) SetQuota(c echo.Context) error {
	count, err := strconv.ParseInt(c.Param("count"), 10, 64)
	if err != nil || count < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "count must be a non-negative integer"})
	}
	if err := h.arbiter.SetCount(c.Request().Context(), count); err != nil {
		log.Printf("admin: set quota: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to set quota"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": count})
}

// SimulateFailure handles POST /v1/admin/simulate-failure. The flag is
// persisted so every instance observes the same setting.
func (h *AdminHandler) SimulateFailure(c echo.Context) error {
	var body struct {
		Enable bool `json:"enable"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.flag.Set(c.Request().Context(), body.Enable); err != nil {
		log.Printf("admin: set failure flag: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update flag"})
	}
	msg := "failure simulation disabled"
	if body.Enable {
		msg = "failure simulation enabled"
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "simulate_failure": body.Enable, "message": msg})
}
