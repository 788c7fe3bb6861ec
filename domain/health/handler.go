// Package health exposes the operational endpoints: liveness, readiness,
// and repository statistics.
package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/artifexhq/artifex/domain/repository"
	"github.com/artifexhq/artifex/internal/config"
)

// Handler handles health check requests.
type Handler struct {
	store   repository.Store
	cfg     *config.Config
	startAt time.Time
}

func NewHandler(store repository.Store, cfg *config.Config) *Handler {
	return &Handler{
		store:   store,
		cfg:     cfg,
		startAt: time.Now(),
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Driver    string           `json:"driver"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents an individual health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ping runs an empty transaction, which round-trips to the backing store.
func (h *Handler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return h.store.InTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		return nil
	})
}

// Health returns the overall service health.
func (h *Handler) Health(c echo.Context) error {
	storeStatus, storeMessage := "healthy", ""
	if err := h.ping(c.Request().Context()); err != nil {
		storeStatus, storeMessage = "unhealthy", err.Error()
	}

	response := HealthResponse{
		Status:    storeStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Driver:    h.cfg.Repository.Driver,
		Checks: map[string]Check{
			"store": {Status: storeStatus, Message: storeMessage},
		},
	}

	statusCode := http.StatusOK
	if response.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, response)
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready is the readiness probe.
func (h *Handler) Ready(c echo.Context) error {
	if err := h.ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": "store unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
}

// Debug returns runtime information outside production.
func (h *Handler) Debug(c echo.Context) error {
	if h.cfg.Environment == "production" {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(http.StatusOK, map[string]any{
		"environment": h.cfg.Environment,
		"driver":      h.cfg.Repository.Driver,
		"go_version":  runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc_mb":       mem.Alloc / 1024 / 1024,
			"total_alloc_mb": mem.TotalAlloc / 1024 / 1024,
			"sys_mb":         mem.Sys / 1024 / 1024,
			"num_gc":         mem.NumGC,
		},
	})
}
