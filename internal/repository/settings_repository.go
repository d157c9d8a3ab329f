package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Techmanna/seat-reservation-api/internal/model"
)

// SettingsRepo provides access to the singleton system_settings row.
// List-valued fields (capacity overrides, event times, working days,
// blocked dates) are stored as JSON text columns so the settings stay a
// single document the way the booking flow reads them.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo returns a new SettingsRepo bound to the given database.
func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

const dateLayout = "2006-01-02"

// jsonOverride is the storage form of a capacity override; dates are
// kept as YYYY-MM-DD strings inside the JSON column.
type jsonOverride struct {
	Date       string `json:"date"`
	TotalSeats int    `json:"totalSeats"`
}

// Get returns the settings document. ErrNotFound means the system has
// not been configured yet.
func (r *SettingsRepo) Get(ctx context.Context) (model.SystemSettings, error) {
	const q = `SELECT id, reservation_open_date, reservation_close_date, default_total_seats,
	                  seat_capacity_overrides, event_times, working_days, blocked_dates,
	                  max_seats_per_user, min_cancellation_hours, created_at, updated_at
	           FROM system_settings LIMIT 1`
	var (
		s         model.SystemSettings
		overrides string
		times     string
		days      string
		blocked   string
	)
	err := r.db.QueryRowContext(ctx, q).Scan(
		&s.ID, &s.ReservationOpenDate, &s.ReservationCloseDate, &s.DefaultTotalSeats,
		&overrides, &times, &days, &blocked,
		&s.MaxSeatsPerUser, &s.MinCancellationHours, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return model.SystemSettings{}, ErrNotFound
	}
	if err != nil {
		return model.SystemSettings{}, err
	}
	if err := decodeLists(&s, overrides, times, days, blocked); err != nil {
		return model.SystemSettings{}, err
	}
	return s, nil
}

// Upsert writes the settings document, creating it on first deployment
// and replacing the existing row afterwards. The singleton is never
// deleted.
func (r *SettingsRepo) Upsert(ctx context.Context, s model.SystemSettings) (model.SystemSettings, error) {
	overrides, times, days, blocked, err := encodeLists(s)
	if err != nil {
		return model.SystemSettings{}, err
	}

	existing, err := r.Get(ctx)
	if err != nil && err != ErrNotFound {
		return model.SystemSettings{}, err
	}
	if err == ErrNotFound {
		const ins = `INSERT INTO system_settings
			(reservation_open_date, reservation_close_date, default_total_seats,
			 seat_capacity_overrides, event_times, working_days, blocked_dates,
			 max_seats_per_user, min_cancellation_hours)
			VALUES (?,?,?,?,?,?,?,?,?)`
		if _, err := r.db.ExecContext(ctx, ins,
			s.ReservationOpenDate.Format(dateLayout), s.ReservationCloseDate.Format(dateLayout),
			s.DefaultTotalSeats, overrides, times, days, blocked,
			s.MaxSeatsPerUser, s.MinCancellationHours,
		); err != nil {
			return model.SystemSettings{}, err
		}
		return r.Get(ctx)
	}

	const upd = `UPDATE system_settings SET
		reservation_open_date=?, reservation_close_date=?, default_total_seats=?,
		seat_capacity_overrides=?, event_times=?, working_days=?, blocked_dates=?,
		max_seats_per_user=?, min_cancellation_hours=?
		WHERE id=?`
	if _, err := r.db.ExecContext(ctx, upd,
		s.ReservationOpenDate.Format(dateLayout), s.ReservationCloseDate.Format(dateLayout),
		s.DefaultTotalSeats, overrides, times, days, blocked,
		s.MaxSeatsPerUser, s.MinCancellationHours, existing.ID,
	); err != nil {
		return model.SystemSettings{}, err
	}
	return r.Get(ctx)
}

func encodeLists(s model.SystemSettings) (overrides, times, days, blocked string, err error) {
	ovs := make([]jsonOverride, 0, len(s.SeatCapacityOverrides))
	for _, o := range s.SeatCapacityOverrides {
		ovs = append(ovs, jsonOverride{Date: o.Date.Format(dateLayout), TotalSeats: o.TotalSeats})
	}
	bds := make([]string, 0, len(s.BlockedDates))
	for _, d := range s.BlockedDates {
		bds = append(bds, d.Format(dateLayout))
	}
	var buf []byte
	if buf, err = json.Marshal(ovs); err != nil {
		return
	}
	overrides = string(buf)
	if buf, err = json.Marshal(s.EventTimes); err != nil {
		return
	}
	times = string(buf)
	if buf, err = json.Marshal(s.WorkingDays); err != nil {
		return
	}
	days = string(buf)
	if buf, err = json.Marshal(bds); err != nil {
		return
	}
	blocked = string(buf)
	return
}

func decodeLists(s *model.SystemSettings, overrides, times, days, blocked string) error {
	var ovs []jsonOverride
	if err := json.Unmarshal([]byte(overrides), &ovs); err != nil {
		return err
	}
	s.SeatCapacityOverrides = make([]model.SeatCapacityOverride, 0, len(ovs))
	for _, o := range ovs {
		d, err := time.Parse(dateLayout, o.Date)
		if err != nil {
			return err
		}
		s.SeatCapacityOverrides = append(s.SeatCapacityOverrides, model.SeatCapacityOverride{Date: d, TotalSeats: o.TotalSeats})
	}
	if err := json.Unmarshal([]byte(times), &s.EventTimes); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(days), &s.WorkingDays); err != nil {
		return err
	}
	var bds []string
	if err := json.Unmarshal([]byte(blocked), &bds); err != nil {
		return err
	}
	s.BlockedDates = make([]time.Time, 0, len(bds))
	for _, raw := range bds {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return err
		}
		s.BlockedDates = append(s.BlockedDates, d)
	}
	return nil
}
