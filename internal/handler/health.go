package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler serves the liveness probe and the root banner.
type HealthHandler struct {
	AppName    string
	AppVersion string
}

func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Root(c echo.Context) error {
	return ok(c, http.StatusOK, h.AppName+" is running", map[string]string{
		"name":    h.AppName,
		"version": h.AppVersion,
	})
}
