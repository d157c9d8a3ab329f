package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Techmanna/seat-reservation-api/internal/apperr"
)

// Envelope is the uniform JSON response shape of every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ok writes a success envelope with the given status code.
func ok(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// fail translates an error into a failure envelope. Business-rule
// failures keep their message; anything unclassified is logged
// server-side and hidden behind a generic 500.
func fail(c echo.Context, message string, err error) error {
	status := http.StatusInternalServerError
	detail := "internal server error"
	switch apperr.KindOf(err) {
	case apperr.Validation, apperr.Conflict:
		status = http.StatusBadRequest
		detail = err.Error()
	case apperr.NotFound:
		status = http.StatusNotFound
		detail = err.Error()
	default:
		log.Printf("handler: %s: %v", c.Path(), err)
	}
	return c.JSON(status, Envelope{Success: false, Message: message, Error: detail})
}
