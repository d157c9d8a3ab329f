package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Techmanna/seat-reservation-api/internal/model"
)

// BookingRepo provides access to the bookings and booking_seats tables.
//
// Seat rows exist only while a booking is active (PENDING or CONFIRMED);
// cancelling or expiring a booking deletes them, which is what releases
// the seats. Because booking_seats carries a unique (event_date,
// seat_label) key, inserting holds is the atomic check-then-write the
// initiate flow relies on: the losing side of a race gets ErrSeatTaken.
//
// Expired PENDING bookings are reaped lazily inside the same transaction
// that reads or writes seats for a date; there is no background sweep.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// reapExpiredTx releases seats held by PENDING bookings whose
// verification window has lapsed and marks those bookings EXPIRED.
func (r *BookingRepo) reapExpiredTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		`DELETE bs FROM booking_seats bs
		 JOIN bookings b ON b.id = bs.booking_id
		 WHERE b.status = ? AND b.hold_expires_at <= UTC_TIMESTAMP()`,
		model.BookingPending)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?
		 WHERE status = ? AND hold_expires_at <= UTC_TIMESTAMP()`,
		model.BookingExpired, model.BookingPending)
	return err
}

// SeatLabelsForDate returns the seat labels currently held (pending or
// confirmed) for an event date, after reaping lapsed holds.
func (r *BookingRepo) SeatLabelsForDate(ctx context.Context, date time.Time) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := r.reapExpiredTx(ctx, tx); err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_label FROM booking_seats WHERE event_date = ? ORDER BY seat_label`,
		date.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labels := make([]string, 0)
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return labels, nil
}

// ConfirmedSeatCountForUser counts the seats a user has confirmed on a
// date, used to enforce maxSeatsPerUser. The user's own PENDING hold is
// excluded because a new initiation abandons it.
func (r *BookingRepo) ConfirmedSeatCountForUser(ctx context.Context, userID uint64, date time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_seats bs
		 JOIN bookings b ON b.id = bs.booking_id
		 WHERE b.user_id = ? AND bs.event_date = ? AND b.status = ?`,
		userID, date.Format(dateLayout), model.BookingConfirmed).Scan(&n)
	return n, err
}

// CreatePending inserts a booking in PENDING state together with its
// seat holds in one transaction. Any earlier PENDING booking of the
// same user is expired first, since issuing a new OTP invalidates the
// old verification flow. A duplicate seat on the same date aborts the
// transaction with ErrSeatTaken. On success the generated ID is set on b.
func (r *BookingRepo) CreatePending(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := r.reapExpiredTx(ctx, tx); err != nil {
		return err
	}

	// Abandon any previous unverified booking by this user.
	if _, err := tx.ExecContext(ctx,
		`DELETE bs FROM booking_seats bs
		 JOIN bookings b ON b.id = bs.booking_id
		 WHERE b.user_id = ? AND b.status = ?`,
		b.UserID, model.BookingPending); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE user_id = ? AND status = ?`,
		model.BookingExpired, b.UserID, model.BookingPending); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, event_date, status, qr_payload, calendar_link, hold_expires_at)
		 VALUES (?,?,?,?,?,?)`,
		b.UserID, b.EventDate.Format(dateLayout), model.BookingPending, "", "",
		b.HoldExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingPending

	for _, label := range b.SeatLabels {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO booking_seats (booking_id, event_date, seat_label) VALUES (?,?,?)`,
			b.ID, b.EventDate.Format(dateLayout), label); err != nil {
			if isDuplicateKey(err) {
				return ErrSeatTaken
			}
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID loads a booking and its seat labels.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	const q = `SELECT id, user_id, event_date, status, COALESCE(ticket_id, ''),
	                  reservation_token_hash, qr_payload, calendar_link, hold_expires_at,
	                  created_at, updated_at
	           FROM bookings WHERE id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.EventDate, &b.Status, &b.TicketID,
		&b.ReservationTokenHash, &b.QRPayload, &b.CalendarLink, &b.HoldExpiresAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	if b.SeatLabels, err = r.seatLabels(ctx, b.ID); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// GetByTicketID loads a booking by its external ticket identifier.
func (r *BookingRepo) GetByTicketID(ctx context.Context, ticketID string) (model.Booking, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM bookings WHERE ticket_id = ? LIMIT 1`, ticketID).Scan(&id)
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	return r.GetByID(ctx, id)
}

// Confirm promotes a PENDING booking to CONFIRMED, recording the ticket
// ID, the reservation token hash and the email artefacts. ErrNotFound
// means the booking no longer awaits verification (already confirmed,
// cancelled or expired), which keeps verification idempotent-safe.
func (r *BookingRepo) Confirm(ctx context.Context, id uint64, ticketID, tokenHash, qrPayload, calendarLink string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings
		 SET status = ?, ticket_id = ?, reservation_token_hash = ?, qr_payload = ?, calendar_link = ?
		 WHERE id = ? AND status = ?`,
		model.BookingConfirmed, ticketID, tokenHash, qrPayload, calendarLink,
		id, model.BookingPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Cancel moves a CONFIRMED booking to CANCELLED and releases its seats.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? AND status = ?`,
		model.BookingCancelled, id, model.BookingConfirmed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM booking_seats WHERE booking_id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ExtendHold pushes the verification deadline of a PENDING booking,
// used when a fresh OTP is issued for it.
func (r *BookingRepo) ExtendHold(ctx context.Context, id uint64, until time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET hold_expires_at = ? WHERE id = ? AND status = ?`,
		until.UTC().Format("2006-01-02 15:04:05"), id, model.BookingPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BookingRepo) seatLabels(ctx context.Context, bookingID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_label FROM booking_seats WHERE booking_id = ? ORDER BY seat_label`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labels := make([]string, 0)
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
