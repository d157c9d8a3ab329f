package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Techmanna/seat-reservation-api/internal/model"
	"github.com/Techmanna/seat-reservation-api/internal/repository"
)

// SettingsStore is the persistence surface behind the settings endpoints.
type SettingsStore interface {
	Get(ctx context.Context) (model.SystemSettings, error)
	Upsert(ctx context.Context, s model.SystemSettings) (model.SystemSettings, error)
}

// SettingsHandler serves the system settings document: public read for
// the booking frontend, admin-only update behind JWT+role middleware.
type SettingsHandler struct {
	Settings SettingsStore
}

func NewSettingsHandler(s SettingsStore) *SettingsHandler {
	return &SettingsHandler{Settings: s}
}

const dateLayout = "2006-01-02"

// settingsView renders dates as YYYY-MM-DD the way the frontend
// consumes them.
type settingsView struct {
	ReservationOpenDate   string         `json:"reservationOpenDate"`
	ReservationCloseDate  string         `json:"reservationCloseDate"`
	DefaultTotalSeats     int            `json:"defaultTotalSeats"`
	SeatCapacityOverrides []overrideView `json:"seatCapacityOverrides"`
	EventTimes            []string       `json:"eventTimes"`
	WorkingDays           []int          `json:"workingDays"`
	BlockedDates          []string       `json:"blockedDates"`
	MaxSeatsPerUser       int            `json:"maxSeatsPerUser"`
	MinCancellationHours  int            `json:"minCancellationHours"`
}
type overrideView struct {
	Date       string `json:"date"`
	TotalSeats int    `json:"totalSeats"`
}

type settingsUpdateReq struct {
	ReservationOpenDate   string         `json:"reservationOpenDate"`
	ReservationCloseDate  string         `json:"reservationCloseDate"`
	DefaultTotalSeats     int            `json:"defaultTotalSeats"`
	SeatCapacityOverrides []overrideView `json:"seatCapacityOverrides"`
	EventTimes            []string       `json:"eventTimes"`
	WorkingDays           []int          `json:"workingDays"`
	BlockedDates          []string       `json:"blockedDates"`
	MaxSeatsPerUser       int            `json:"maxSeatsPerUser"`
	MinCancellationHours  int            `json:"minCancellationHours"`
}

func toView(s model.SystemSettings) settingsView {
	v := settingsView{
		ReservationOpenDate:   s.ReservationOpenDate.Format(dateLayout),
		ReservationCloseDate:  s.ReservationCloseDate.Format(dateLayout),
		DefaultTotalSeats:     s.DefaultTotalSeats,
		SeatCapacityOverrides: make([]overrideView, 0, len(s.SeatCapacityOverrides)),
		EventTimes:            s.EventTimes,
		WorkingDays:           s.WorkingDays,
		BlockedDates:          make([]string, 0, len(s.BlockedDates)),
		MaxSeatsPerUser:       s.MaxSeatsPerUser,
		MinCancellationHours:  s.MinCancellationHours,
	}
	for _, o := range s.SeatCapacityOverrides {
		v.SeatCapacityOverrides = append(v.SeatCapacityOverrides, overrideView{Date: o.Date.Format(dateLayout), TotalSeats: o.TotalSeats})
	}
	for _, d := range s.BlockedDates {
		v.BlockedDates = append(v.BlockedDates, d.Format(dateLayout))
	}
	return v
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Settings.Get(ctx)
	if err == repository.ErrNotFound {
		return c.JSON(http.StatusNotFound, Envelope{Success: false, Message: "Failed to fetch settings", Error: "system settings not configured"})
	}
	if err != nil {
		return fail(c, "Failed to fetch settings", err)
	}
	return ok(c, http.StatusOK, "Settings retrieved successfully", toView(s))
}

// Update handles PUT /api/settings (admin only). The singleton is
// created on first update and replaced afterwards.
func (h *SettingsHandler) Update(c echo.Context) error {
	var req settingsUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Invalid request body", Error: "invalid request body"})
	}
	s, errMsg := fromUpdateReq(req)
	if errMsg != "" {
		return c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Invalid settings", Error: errMsg})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	updated, err := h.Settings.Upsert(ctx, s)
	if err != nil {
		return fail(c, "Failed to update settings", err)
	}
	return ok(c, http.StatusOK, "Settings updated successfully", toView(updated))
}

func fromUpdateReq(req settingsUpdateReq) (model.SystemSettings, string) {
	open, err := time.Parse(dateLayout, req.ReservationOpenDate)
	if err != nil {
		return model.SystemSettings{}, "reservationOpenDate must be YYYY-MM-DD"
	}
	closing, err := time.Parse(dateLayout, req.ReservationCloseDate)
	if err != nil {
		return model.SystemSettings{}, "reservationCloseDate must be YYYY-MM-DD"
	}
	if closing.Before(open) {
		return model.SystemSettings{}, "reservationOpenDate must not be after reservationCloseDate"
	}
	if req.DefaultTotalSeats < 1 {
		return model.SystemSettings{}, "defaultTotalSeats must be at least 1"
	}
	if req.MaxSeatsPerUser < 1 || req.MaxSeatsPerUser > 10 {
		return model.SystemSettings{}, "maxSeatsPerUser must be between 1 and 10"
	}
	if req.MinCancellationHours < 0 {
		return model.SystemSettings{}, "minCancellationHours must not be negative"
	}
	for _, wd := range req.WorkingDays {
		if wd < 1 || wd > 7 {
			return model.SystemSettings{}, "workingDays must contain values 1..7"
		}
	}

	s := model.SystemSettings{
		ReservationOpenDate:  open,
		ReservationCloseDate: closing,
		DefaultTotalSeats:    req.DefaultTotalSeats,
		EventTimes:           req.EventTimes,
		WorkingDays:          req.WorkingDays,
		MaxSeatsPerUser:      req.MaxSeatsPerUser,
		MinCancellationHours: req.MinCancellationHours,
	}
	for _, o := range req.SeatCapacityOverrides {
		d, err := time.Parse(dateLayout, o.Date)
		if err != nil {
			return model.SystemSettings{}, "seatCapacityOverrides dates must be YYYY-MM-DD"
		}
		if o.TotalSeats < 1 {
			return model.SystemSettings{}, "seatCapacityOverrides totalSeats must be at least 1"
		}
		s.SeatCapacityOverrides = append(s.SeatCapacityOverrides, model.SeatCapacityOverride{Date: d, TotalSeats: o.TotalSeats})
	}
	for _, raw := range req.BlockedDates {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return model.SystemSettings{}, "blockedDates must be YYYY-MM-DD"
		}
		s.BlockedDates = append(s.BlockedDates, d)
	}
	return s, ""
}
