package controllers

import (
	"net/http"
	"strconv"

	"github.com/datallboy/jarview/internal/app"
	"github.com/labstack/echo/v5"
)

const maxHistoryLimit = 500

type HistoryController struct {
	App *app.Context
}

// List returns the most recent requests, newest first
func (ctrl *HistoryController) List(c *echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := ctrl.App.History.Recent(c.Request().Context(), limit)
	if err != nil {
		ctrl.App.Logger.Error("Failed to load history: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, records)
}

func (ctrl *HistoryController) Get(c *echo.Context) error {
	rec, err := ctrl.App.History.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if rec == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "request not found"})
	}

	return c.JSON(http.StatusOK, rec)
}

// Health reports liveness plus what the dispatcher is busy with
func (ctrl *HistoryController) Health(c *echo.Context) error {
	active, busy := ctrl.App.Dispatcher.Active()

	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"busy":    busy,
		"active":  active,
		"pending": ctrl.App.Dispatcher.Pending(),
	})
}
