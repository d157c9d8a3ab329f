package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Techmanna/seat-reservation-api/internal/apperr"
	"github.com/Techmanna/seat-reservation-api/internal/model"
	"github.com/Techmanna/seat-reservation-api/internal/repository"
	"github.com/Techmanna/seat-reservation-api/internal/utils"
)

const dateLayout = "2006-01-02"

// SettingsStore supplies the singleton configuration the booking flow
// validates against. It is fetched once per request, never cached as
// ambient state.
type SettingsStore interface {
	Get(ctx context.Context) (model.SystemSettings, error)
}

// UserStore resolves the owning user of a booking.
type UserStore interface {
	FindOrCreateByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// BookingStore is the persistence surface of the lifecycle manager. The
// SQL implementation guarantees that CreatePending's availability check
// and seat insert are atomic via the unique seat key.
type BookingStore interface {
	SeatLabelsForDate(ctx context.Context, date time.Time) ([]string, error)
	ConfirmedSeatCountForUser(ctx context.Context, userID uint64, date time.Time) (int, error)
	CreatePending(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	GetByTicketID(ctx context.Context, ticketID string) (model.Booking, error)
	Confirm(ctx context.Context, id uint64, ticketID, tokenHash, qrPayload, calendarLink string) error
	Cancel(ctx context.Context, id uint64) error
	ExtendHold(ctx context.Context, id uint64, until time.Time) error
}

// Notifier dispatches the three booking emails.
type Notifier interface {
	SendOTP(ctx context.Context, to string, b model.Booking, code string, ttl time.Duration) error
	SendConfirmation(ctx context.Context, to string, b model.Booking, rawToken string) error
	SendCancellation(ctx context.Context, to string, b model.Booking) error
}

// BookingService orchestrates the booking lifecycle:
// initiate -> verify -> confirmed -> (optionally) cancelled, with lapsed
// verifications expiring and releasing their seats.
type BookingService struct {
	settings SettingsStore
	users    UserStore
	bookings BookingStore
	otp      *OTPIssuer
	notify   Notifier
	now      func() time.Time
}

// NewBookingService wires the lifecycle manager.
func NewBookingService(settings SettingsStore, users UserStore, bookings BookingStore, otp *OTPIssuer, notify Notifier) *BookingService {
	return &BookingService{
		settings: settings,
		users:    users,
		bookings: bookings,
		otp:      otp,
		notify:   notify,
		now:      time.Now,
	}
}

// Availability is the result of the seat availability calculation.
type Availability struct {
	EventDate        string   `json:"eventDate"`
	TotalSeats       int      `json:"totalSeats"`
	BookedSeatLabels []string `json:"bookedSeatLabels"`
	FreeSeatLabels   []string `json:"freeSeatLabels"`
}

// InitiateResult reports a successfully started booking awaiting OTP
// verification.
type InitiateResult struct {
	Email         string    `json:"email"`
	EventDate     string    `json:"eventDate"`
	SeatLabels    []string  `json:"seatLabels"`
	HoldExpiresAt time.Time `json:"holdExpiresAt"`
}

// VerifyResult carries the confirmed booking artefacts, including the
// one-time reveal of the reservation token.
type VerifyResult struct {
	TicketID         string   `json:"ticketId"`
	ReservationToken string   `json:"reservationToken"`
	EventDate        string   `json:"eventDate"`
	SeatLabels       []string `json:"seatLabels"`
	QRPayload        string   `json:"qrPayload"`
	CalendarLink     string   `json:"calendarLink"`
}

// CancelResult reports a cancelled booking and its released seats.
type CancelResult struct {
	TicketID   string   `json:"ticketId"`
	EventDate  string   `json:"eventDate"`
	SeatLabels []string `json:"seatLabels"`
}

// GetAvailableSeats computes capacity, booked labels and free labels
// for a date, failing with Validation when the date is outside the
// reservation window, blacked out, or not a working day.
func (s *BookingService) GetAvailableSeats(ctx context.Context, dateStr string) (Availability, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return Availability{}, err
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return Availability{}, err
	}
	if err := validateEventDate(&settings, date); err != nil {
		return Availability{}, err
	}
	booked, err := s.bookings.SeatLabelsForDate(ctx, date)
	if err != nil {
		return Availability{}, err
	}
	total := settings.TotalSeatsFor(date)
	return Availability{
		EventDate:        date.Format(dateLayout),
		TotalSeats:       total,
		BookedSeatLabels: booked,
		FreeSeatLabels:   FreeSeats(total, booked),
	}, nil
}

// InitiateBooking validates the request against the system settings and
// current availability, creates the user on first contact, holds the
// seats in a PENDING booking and emails a verification code. The seat
// hold lives exactly as long as the code.
func (s *BookingService) InitiateBooking(ctx context.Context, email, dateStr string, seatLabels []string) (InitiateResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return InitiateResult{}, err
	}
	seats := normalizeSeats(seatLabels)
	if len(seats) == 0 {
		return InitiateResult{}, apperr.Validationf("at least one seat label is required")
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return InitiateResult{}, err
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return InitiateResult{}, err
	}
	if err := validateEventDate(&settings, date); err != nil {
		return InitiateResult{}, err
	}

	total := settings.TotalSeatsFor(date)
	valid := make(map[string]struct{}, total)
	for _, l := range SeatLabels(total) {
		valid[l] = struct{}{}
	}
	for _, l := range seats {
		if _, ok := valid[l]; !ok {
			return InitiateResult{}, apperr.Validationf("unknown seat label %q for this date", l)
		}
	}
	booked, err := s.bookings.SeatLabelsForDate(ctx, date)
	if err != nil {
		return InitiateResult{}, err
	}
	taken := make(map[string]struct{}, len(booked))
	for _, l := range booked {
		taken[l] = struct{}{}
	}
	for _, l := range seats {
		if _, ok := taken[l]; ok {
			return InitiateResult{}, apperr.Validationf("seat %s is no longer available", l)
		}
	}

	user, err := s.users.FindOrCreateByEmail(ctx, email)
	if err != nil {
		return InitiateResult{}, err
	}
	// A new initiation abandons the user's previous PENDING hold (released
	// by CreatePending), so only confirmed seats count against the limit.
	held, err := s.bookings.ConfirmedSeatCountForUser(ctx, user.ID, date)
	if err != nil {
		return InitiateResult{}, err
	}
	if held+len(seats) > settings.MaxSeatsPerUser {
		return InitiateResult{}, apperr.Conflictf("seat limit exceeded: at most %d seat(s) per user for a date", settings.MaxSeatsPerUser)
	}

	booking := model.Booking{
		UserID:        user.ID,
		EventDate:     date,
		SeatLabels:    seats,
		HoldExpiresAt: s.now().UTC().Add(s.otp.TTL),
	}
	if err := s.bookings.CreatePending(ctx, &booking); err != nil {
		if err == repository.ErrSeatTaken {
			return InitiateResult{}, apperr.Validationf("one or more requested seats are no longer available")
		}
		return InitiateResult{}, err
	}

	rec, err := s.otp.Issue(ctx, email, booking.ID)
	if err != nil {
		return InitiateResult{}, err
	}
	if err := s.notify.SendOTP(ctx, email, booking, rec.Code, s.otp.TTL); err != nil {
		// Seats stay held until the hold lapses; the client can resend.
		log.Printf("booking: OTP email to %s failed: %v", email, err)
		return InitiateResult{}, fmt.Errorf("send verification email: %w", err)
	}

	return InitiateResult{
		Email:         email,
		EventDate:     date.Format(dateLayout),
		SeatLabels:    seats,
		HoldExpiresAt: booking.HoldExpiresAt,
	}, nil
}

// VerifyOTPAndCompleteBooking matches a submitted code against the
// active OTP for the email and promotes the pending booking to
// CONFIRMED, issuing the ticket ID and reservation token. The OTP is
// consumed on success, so a second verification fails with NotFound.
func (s *BookingService) VerifyOTPAndCompleteBooking(ctx context.Context, email, code string) (VerifyResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return VerifyResult{}, err
	}
	if code == "" {
		return VerifyResult{}, apperr.Validationf("otp is required")
	}

	rec, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return VerifyResult{}, err
	}
	booking, err := s.bookings.GetByID(ctx, rec.BookingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return VerifyResult{}, apperr.NotFoundf("pending booking not found")
		}
		return VerifyResult{}, err
	}
	if booking.Status != model.BookingPending || !s.now().UTC().Before(booking.HoldExpiresAt) {
		return VerifyResult{}, apperr.Validationf("booking is no longer awaiting verification, start again")
	}

	ticketID, err := utils.NewTicketID()
	if err != nil {
		return VerifyResult{}, err
	}
	rawToken, err := utils.NewReservationToken()
	if err != nil {
		return VerifyResult{}, err
	}
	qrPayload := qrPayloadFor(ticketID, booking)
	calendarLink := calendarLinkFor(booking)

	if err := s.bookings.Confirm(ctx, booking.ID, ticketID, utils.HashToken(rawToken), qrPayload, calendarLink); err != nil {
		if err == repository.ErrNotFound {
			return VerifyResult{}, apperr.NotFoundf("booking already completed")
		}
		return VerifyResult{}, err
	}

	booking.Status = model.BookingConfirmed
	booking.TicketID = ticketID
	booking.QRPayload = qrPayload
	booking.CalendarLink = calendarLink

	// Email delivery is best-effort; the booking is committed either way.
	if err := s.notify.SendConfirmation(ctx, email, booking, rawToken); err != nil {
		log.Printf("booking: confirmation email for %s failed: %v", ticketID, err)
	}

	return VerifyResult{
		TicketID:         ticketID,
		ReservationToken: rawToken,
		EventDate:        booking.EventDate.Format(dateLayout),
		SeatLabels:       booking.SeatLabels,
		QRPayload:        qrPayload,
		CalendarLink:     calendarLink,
	}, nil
}

// ResendOTP invalidates the previous code for the email, issues a fresh
// one, extends the seat hold accordingly and re-sends the email. It
// fails with NotFound when no pending booking exists for the address.
func (s *BookingService) ResendOTP(ctx context.Context, email string) (InitiateResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return InitiateResult{}, err
	}
	prev, err := s.otp.Store.GetByEmail(ctx, email)
	if err != nil {
		if err == repository.ErrNotFound {
			return InitiateResult{}, apperr.NotFoundf("no pending booking for this email")
		}
		return InitiateResult{}, err
	}
	booking, err := s.bookings.GetByID(ctx, prev.BookingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return InitiateResult{}, apperr.NotFoundf("no pending booking for this email")
		}
		return InitiateResult{}, err
	}
	if booking.Status != model.BookingPending {
		return InitiateResult{}, apperr.NotFoundf("no pending booking for this email")
	}

	rec, err := s.otp.Issue(ctx, email, booking.ID)
	if err != nil {
		return InitiateResult{}, err
	}
	if err := s.bookings.ExtendHold(ctx, booking.ID, rec.ExpiresAt); err != nil && err != repository.ErrNotFound {
		return InitiateResult{}, err
	}
	booking.HoldExpiresAt = rec.ExpiresAt
	if err := s.notify.SendOTP(ctx, email, booking, rec.Code, s.otp.TTL); err != nil {
		log.Printf("booking: OTP resend to %s failed: %v", email, err)
		return InitiateResult{}, fmt.Errorf("send verification email: %w", err)
	}

	return InitiateResult{
		Email:         email,
		EventDate:     booking.EventDate.Format(dateLayout),
		SeatLabels:    booking.SeatLabels,
		HoldExpiresAt: booking.HoldExpiresAt,
	}, nil
}

// CancelBooking voids a confirmed booking when the ticket ID and
// reservation token both match and the cancellation notice is observed.
// Released seats become available again for the date.
func (s *BookingService) CancelBooking(ctx context.Context, ticketID, reservationToken string) (CancelResult, error) {
	if ticketID == "" || reservationToken == "" {
		return CancelResult{}, apperr.Validationf("ticketId and reservationToken are required")
	}
	booking, err := s.bookings.GetByTicketID(ctx, ticketID)
	if err != nil {
		if err == repository.ErrNotFound {
			return CancelResult{}, apperr.NotFoundf("booking not found")
		}
		return CancelResult{}, err
	}
	if booking.Status != model.BookingConfirmed {
		return CancelResult{}, apperr.NotFoundf("booking not found")
	}
	if utils.HashToken(reservationToken) != booking.ReservationTokenHash {
		return CancelResult{}, apperr.Validationf("invalid reservation token")
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return CancelResult{}, err
	}
	cutoff := settings.EventStart(booking.EventDate).Add(-time.Duration(settings.MinCancellationHours) * time.Hour)
	if !s.now().UTC().Before(cutoff) {
		return CancelResult{}, apperr.Validationf("cancellation must be at least %d hour(s) before the event", settings.MinCancellationHours)
	}

	if err := s.bookings.Cancel(ctx, booking.ID); err != nil {
		if err == repository.ErrNotFound {
			return CancelResult{}, apperr.NotFoundf("booking not found")
		}
		return CancelResult{}, err
	}
	booking.Status = model.BookingCancelled

	if user, uerr := s.users.GetByID(ctx, booking.UserID); uerr == nil {
		if err := s.notify.SendCancellation(ctx, user.Email, booking); err != nil {
			log.Printf("booking: cancellation email for %s failed: %v", ticketID, err)
		}
	}

	return CancelResult{
		TicketID:   ticketID,
		EventDate:  booking.EventDate.Format(dateLayout),
		SeatLabels: booking.SeatLabels,
	}, nil
}

// ---- helpers ----

func (s *BookingService) loadSettings(ctx context.Context) (model.SystemSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err == repository.ErrNotFound {
		return model.SystemSettings{}, apperr.NotFoundf("system settings not configured")
	}
	return settings, err
}

func validateEventDate(settings *model.SystemSettings, date time.Time) error {
	open := dayOf(settings.ReservationOpenDate)
	closing := dayOf(settings.ReservationCloseDate)
	if date.Before(open) || date.After(closing) {
		return apperr.Validationf("date %s is outside the reservation window (%s to %s)",
			date.Format(dateLayout), open.Format(dateLayout), closing.Format(dateLayout))
	}
	if settings.IsBlocked(date) {
		return apperr.Validationf("date %s is not available for booking", date.Format(dateLayout))
	}
	if !settings.IsWorkingDay(date) {
		return apperr.Validationf("date %s falls outside working days", date.Format(dateLayout))
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validationf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d.UTC(), nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return apperr.Validationf("valid email is required")
	}
	return nil
}

// normalizeSeats upper-cases, trims and deduplicates labels, keeping a
// sorted order so responses are deterministic.
func normalizeSeats(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.ToUpper(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func qrPayloadFor(ticketID string, b model.Booking) string {
	return ticketID + "|" + b.EventDate.Format(dateLayout) + "|" + strings.Join(b.SeatLabels, ",")
}

// calendarLinkFor builds a Google Calendar template URL for the event
// date (all-day entry; the venue communicates exact times separately).
func calendarLinkFor(b model.Booking) string {
	start := b.EventDate.Format("20060102")
	end := b.EventDate.AddDate(0, 0, 1).Format("20060102")
	v := url.Values{}
	v.Set("action", "TEMPLATE")
	v.Set("text", "Seat reservation "+strings.Join(b.SeatLabels, ", "))
	v.Set("dates", start+"/"+end)
	return "https://calendar.google.com/calendar/render?" + v.Encode()
}
