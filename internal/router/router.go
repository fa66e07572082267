package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-booking-saga/internal/handler"
)

// RegisterRoutes registers the full HTTP surface on the provided Echo
// instance: health check, booking endpoints, test-only admin hooks, and the
// per-step invocation surface for external workflow orchestrators.
func RegisterRoutes(e *echo.Echo, health *handler.HealthHandler, booking *handler.BookingHandler, admin *handler.AdminHandler, steps *handler.StepHandler) {
	// Liveness probe for load balancers and monitoring.
	e.GET("/healthz", health.Health)

	// Catalog browsing and the booking lifecycle.
	v1 := e.Group("/v1")
	v1.GET("/services/:gender", booking.Services)
	v1.POST("/bookings", booking.Submit)
	v1.GET("/bookings/:id/result", booking.Result)
	v1.GET("/bookings/:id/status", booking.Status)
	v1.GET("/bookings/:id/stream", booking.Stream)

	// Test-only admin hooks: quota inspection/manipulation and the booking
	// failure simulation. Deployments must keep these off the public edge.
	adm := v1.Group("/admin")
	adm.GET("/quota", admin.QuotaStatus)
	adm.POST("/quota/reset", admin.ResetQuota)
	adm.POST("/quota/set/:count", admin.SetQuota)
	adm.POST("/simulate-failure", admin.SimulateFailure)

	// Step-invocation surface for external workflow orchestrators. Each
	// endpoint operates on the persisted record exactly as the internal
	// coordinators do.
	st := v1.Group("/steps")
	st.POST("/validate", steps.Validate)
	st.POST("/price", steps.Price)
	st.POST("/reserve-quota", steps.ReserveQuota)
	st.POST("/create-booking", steps.CreateBooking)
	st.POST("/release-quota", steps.ReleaseQuota)
}
