package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Techmanna/seat-reservation-api/internal/model"
)

// OTPRepo provides access to the `otps` table. The unique key on email
// plus Replace's delete-then-insert keeps at most one code per address;
// Consume deletes the row so a verified code can never be replayed.
type OTPRepo struct {
	db *sql.DB
}

// NewOTPRepo returns a new OTPRepo bound to the given database.
func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{db: db} }

// Replace stores a fresh OTP for the email, discarding any previous
// code. The generated ID is set on rec.
func (r *OTPRepo) Replace(ctx context.Context, rec *model.OTP) error {
	rec.Email = strings.ToLower(strings.TrimSpace(rec.Email))
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
	if _, err := tx.ExecContext(ctx, `DELETE FROM otps WHERE email = ?`, rec.Email); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO otps (email, code, booking_id, expires_at) VALUES (?,?,?,?)`,
		rec.Email, rec.Code, rec.BookingID, rec.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByEmail returns the stored OTP for an email, expired or not; the
// caller decides how to treat an expired code.
func (r *OTPRepo) GetByEmail(ctx context.Context, email string) (model.OTP, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var o model.OTP
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, code, booking_id, expires_at, created_at FROM otps WHERE email = ? LIMIT 1`,
		email).Scan(&o.ID, &o.Email, &o.Code, &o.BookingID, &o.ExpiresAt, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return model.OTP{}, ErrNotFound
	}
	return o, err
}

// Consume deletes an OTP by ID. ErrNotFound means another request beat
// this one to it, so the caller must not complete the booking twice.
func (r *OTPRepo) Consume(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE id = ?`, id)
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

// DeleteOlderThan removes stale rows past the given age. Kept rows do
// not affect correctness (expiry is checked on read); this is plain
// housekeeping callable from an admin task.
func (r *OTPRepo) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format("2006-01-02 15:04:05")
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
