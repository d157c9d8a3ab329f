package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Techmanna/seat-reservation-api/internal/service"
)

// BookingHandler exposes the booking lifecycle over HTTP. Validation of
// business rules lives in the service; handlers only bind, call and
// translate results into the response envelope.
type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(b *service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

// ----- DTOs -----

type initiateReq struct {
	Email      string   `json:"email"`
	EventDate  string   `json:"eventDate"`
	SeatLabels []string `json:"seatLabels"`
}
type verifyReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
type resendReq struct {
	Email string `json:"email"`
}
type cancelReq struct {
	TicketID         string `json:"ticketId"`
	ReservationToken string `json:"reservationToken"`
}

func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 10*time.Second)
}

// Initiate handles POST /api/bookings/initiate. On success the seats
// are held and a verification code is on its way to the email.
func (h *BookingHandler) Initiate(c echo.Context) error {
	var req initiateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Invalid request body", Error: "invalid request body"})
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	result, err := h.Bookings.InitiateBooking(ctx, req.Email, req.EventDate, req.SeatLabels)
	if err != nil {
		return fail(c, "Failed to initiate booking", err)
	}
	return ok(c, http.StatusOK, "Verification code sent, please check your email", result)
}

// Verify handles POST /api/bookings/verify. A matching code completes
// the booking and returns the ticket ID with the reservation token.
func (h *BookingHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Invalid request body", Error: "invalid request body"})
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	result, err := h.Bookings.VerifyOTPAndCompleteBooking(ctx, req.Email, req.OTP)
	if err != nil {
		return fail(c, "Failed to complete booking", err)
	}
	return ok(c, http.StatusCreated, "Booking confirmed", result)
}

// ResendOTP handles POST /api/bookings/resend-otp.
func (h *BookingHandler) ResendOTP(c echo.Context) error {
	var req resendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Invalid request body", Error: "invalid request body"})
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	result, err := h.Bookings.ResendOTP(ctx, req.Email)
	if err != nil {
		return fail(c, "Failed to resend verification code", err)
	}
	return ok(c, http.StatusOK, "Verification code re-sent", result)
}

// AvailableSeats handles GET /api/bookings/seats/:date.
func (h *BookingHandler) AvailableSeats(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()
	result, err := h.Bookings.GetAvailableSeats(ctx, c.Param("date"))
	if err != nil {
		return fail(c, "Failed to fetch seat availability", err)
	}
	return ok(c, http.StatusOK, "Seat availability retrieved", result)
}

// Cancel handles POST /api/bookings/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Invalid request body", Error: "invalid request body"})
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	result, err := h.Bookings.CancelBooking(ctx, req.TicketID, req.ReservationToken)
	if err != nil {
		return fail(c, "Failed to cancel booking", err)
	}
	return ok(c, http.StatusOK, "Booking cancelled", result)
}
