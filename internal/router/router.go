// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-reservation/internal/handler"
)

// RegisterRoutes mounts the health probe and the /v1 API. Every /v1 route
// runs identity first so the rate limiter can key on the caller.
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler, identity, limiter echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1", identity, limiter)

	r := v1.Group("/reservations")
	r.POST("", h.Create)
	r.GET("/mine", h.ListMine)
	r.GET("/mine/upcoming", h.ListUpcoming)
	r.GET("/mine/past", h.ListPast)
	r.GET("/:id", h.Get)
	r.PATCH("/:id/status", h.UpdateStatus)
	r.DELETE("/:id", h.Cancel)

	v1.GET("/facilities/:id/reservations", h.ListByFacility)
}
