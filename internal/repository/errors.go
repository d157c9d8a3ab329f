// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish failure scenarios without parsing driver errors: for
// example ErrSeatTaken surfaces the unique-key violation produced when
// two bookings race for the same seat label on the same date.
package repository

import "errors"

// ErrSeatTaken is returned when inserting a seat hold collides with an
// existing row for the same event date and seat label. The service
// layer translates it into a "seat unavailable" validation failure.
var ErrSeatTaken = errors.New("seat already taken")

// ErrNotFound is returned when a requested settings row, booking, user
// or OTP does not exist.
var ErrNotFound = errors.New("not found")
