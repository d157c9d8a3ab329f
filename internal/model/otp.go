package model

import "time"

// OTP is a one-time passcode bound to an email address and the pending
// booking it will finalize. At most one row exists per email: issuing a
// new code replaces any previous one, and a successful verification
// deletes the row so the code can never be replayed.
type OTP struct {
	ID        uint64    // otps.id
	Email     string    // otps.email (normalized lower-case)
	Code      string    // otps.code, fixed-length numeric string
	BookingID uint64    // otps.booking_id, the PENDING booking to confirm
	ExpiresAt time.Time // otps.expires_at
	CreatedAt time.Time // otps.created_at
}

// Expired reports whether the code is past its expiry at the given time.
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
