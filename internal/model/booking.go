package model

import "time"

// BookingStatus is the lifecycle state of a booking.
//
// A booking is created PENDING while the requester verifies their email.
// A matching OTP promotes it to CONFIRMED; a valid ticketId+reservationToken
// pair moves it to CANCELLED. PENDING bookings whose verification window
// lapses become EXPIRED and their seats are released.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// Booking mirrors the `bookings` table. Seat labels live in the
// `booking_seats` table; the unique (event_date, seat_label) key there is
// what keeps two bookings from holding the same seat on the same date.
type Booking struct {
	ID                   uint64        // bookings.id
	UserID               uint64        // bookings.user_id
	EventDate            time.Time     // bookings.event_date (DATE, UTC midnight)
	Status               BookingStatus // bookings.status
	TicketID             string        // bookings.ticket_id, set at confirmation
	ReservationTokenHash string        // SHA-256 hex of the raw reservation token
	QRPayload            string        // bookings.qr_payload, set at confirmation
	CalendarLink         string        // bookings.calendar_link, set at confirmation
	HoldExpiresAt        time.Time     // verification deadline while PENDING
	SeatLabels           []string      // booking_seats rows for this booking
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Active reports whether the booking currently holds its seats.
func (b *Booking) Active() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}
