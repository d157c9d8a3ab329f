package model

import "time"

// SeatCapacityOverride replaces the default seat capacity for a single
// event date.
type SeatCapacityOverride struct {
	Date       time.Time `json:"date"`
	TotalSeats int       `json:"totalSeats"`
}

// SystemSettings is the singleton configuration document read by the
// booking flow. It is created once at deployment time and mutated only
// through the admin settings endpoint.
//
// Invariant: ReservationOpenDate <= ReservationCloseDate.
type SystemSettings struct {
	ID                    uint64                 // system_settings.id
	ReservationOpenDate   time.Time              // first bookable date (inclusive)
	ReservationCloseDate  time.Time              // last bookable date (inclusive)
	DefaultTotalSeats     int                    // capacity when no override matches
	SeatCapacityOverrides []SeatCapacityOverride // per-date capacity overrides
	EventTimes            []string               // event time slots, "HH:MM", sorted
	WorkingDays           []int                  // ISO weekdays 1 (Mon) .. 7 (Sun)
	BlockedDates          []time.Time            // blackout dates, never bookable
	MaxSeatsPerUser       int                    // 1..10, active seats per user per date
	MinCancellationHours  int                    // cancellation notice before event start
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TotalSeatsFor resolves the capacity for a date, preferring an override.
func (s *SystemSettings) TotalSeatsFor(date time.Time) int {
	for _, o := range s.SeatCapacityOverrides {
		if sameDay(o.Date, date) {
			return o.TotalSeats
		}
	}
	return s.DefaultTotalSeats
}

// IsBlocked reports whether the date is a blackout date.
func (s *SystemSettings) IsBlocked(date time.Time) bool {
	for _, d := range s.BlockedDates {
		if sameDay(d, date) {
			return true
		}
	}
	return false
}

// IsWorkingDay reports whether the date falls on a configured working
// weekday. An empty WorkingDays list allows every weekday.
func (s *SystemSettings) IsWorkingDay(date time.Time) bool {
	if len(s.WorkingDays) == 0 {
		return true
	}
	// time.Weekday has Sunday = 0; settings use ISO 1..7 with Monday = 1.
	iso := int(date.Weekday())
	if iso == 0 {
		iso = 7
	}
	for _, wd := range s.WorkingDays {
		if wd == iso {
			return true
		}
	}
	return false
}

// EventStart returns the scheduled start of the event on a date: the
// earliest configured time slot, or midnight UTC when none is set.
func (s *SystemSettings) EventStart(date time.Time) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if len(s.EventTimes) == 0 {
		return day
	}
	earliest := s.EventTimes[0]
	for _, slot := range s.EventTimes[1:] {
		if slot < earliest {
			earliest = slot
		}
	}
	if t, err := time.Parse("15:04", earliest); err == nil {
		return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}
	return day
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
