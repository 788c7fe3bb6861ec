package health

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the operational routes.
func RegisterRoutes(e *echo.Echo, h *Handler, s *StatsHandler) {
	e.GET("/health", h.Health)
	e.GET("/healthz", h.Healthz)
	e.GET("/ready", h.Ready)
	e.GET("/debug", h.Debug)
	e.GET("/stats", s.Stats)
}
