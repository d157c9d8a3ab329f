package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Techmanna/seat-reservation-api/internal/apperr"
	"github.com/Techmanna/seat-reservation-api/internal/model"
	"github.com/Techmanna/seat-reservation-api/internal/repository"
	"github.com/Techmanna/seat-reservation-api/internal/utils"
)

// ---- in-memory fakes ----

type fakeSettings struct {
	s   model.SystemSettings
	err error
}

func (f *fakeSettings) Get(ctx context.Context) (model.SystemSettings, error) {
	return f.s, f.err
}

type fakeUsers struct {
	byEmail map[string]model.User
	nextID  uint64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]model.User{}, nextID: 1}
}

func (f *fakeUsers) FindOrCreateByEmail(ctx context.Context, email string) (model.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	u := model.User{ID: f.nextID, Email: email, Role: model.RoleCustomer}
	f.nextID++
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

// fakeBookings mimics the SQL repository, including lazy expiry of
// lapsed PENDING holds and the unique seat-per-date guarantee.
type fakeBookings struct {
	byID   map[uint64]*model.Booking
	nextID uint64
	now    func() time.Time
}

func newFakeBookings(now func() time.Time) *fakeBookings {
	return &fakeBookings{byID: map[uint64]*model.Booking{}, nextID: 1, now: now}
}

func (f *fakeBookings) reap() {
	for _, b := range f.byID {
		if b.Status == model.BookingPending && !f.now().UTC().Before(b.HoldExpiresAt) {
			b.Status = model.BookingExpired
		}
	}
}

func (f *fakeBookings) SeatLabelsForDate(ctx context.Context, date time.Time) ([]string, error) {
	f.reap()
	labels := make([]string, 0)
	for _, b := range f.byID {
		if b.Active() && b.EventDate.Equal(date) {
			labels = append(labels, b.SeatLabels...)
		}
	}
	return labels, nil
}

func (f *fakeBookings) ConfirmedSeatCountForUser(ctx context.Context, userID uint64, date time.Time) (int, error) {
	n := 0
	for _, b := range f.byID {
		if b.UserID == userID && b.Status == model.BookingConfirmed && b.EventDate.Equal(date) {
			n += len(b.SeatLabels)
		}
	}
	return n, nil
}

func (f *fakeBookings) CreatePending(ctx context.Context, b *model.Booking) error {
	f.reap()
	for _, prev := range f.byID {
		if prev.UserID == b.UserID && prev.Status == model.BookingPending {
			prev.Status = model.BookingExpired
		}
	}
	taken := map[string]bool{}
	for _, prev := range f.byID {
		if prev.Active() && prev.EventDate.Equal(b.EventDate) {
			for _, l := range prev.SeatLabels {
				taken[l] = true
			}
		}
	}
	for _, l := range b.SeatLabels {
		if taken[l] {
			return repository.ErrSeatTaken
		}
	}
	b.ID = f.nextID
	f.nextID++
	b.Status = model.BookingPending
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBookings) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	if b, ok := f.byID[id]; ok {
		return *b, nil
	}
	return model.Booking{}, repository.ErrNotFound
}

func (f *fakeBookings) GetByTicketID(ctx context.Context, ticketID string) (model.Booking, error) {
	for _, b := range f.byID {
		if b.TicketID == ticketID {
			return *b, nil
		}
	}
	return model.Booking{}, repository.ErrNotFound
}

func (f *fakeBookings) Confirm(ctx context.Context, id uint64, ticketID, tokenHash, qrPayload, calendarLink string) error {
	b, ok := f.byID[id]
	if !ok || b.Status != model.BookingPending {
		return repository.ErrNotFound
	}
	b.Status = model.BookingConfirmed
	b.TicketID = ticketID
	b.ReservationTokenHash = tokenHash
	b.QRPayload = qrPayload
	b.CalendarLink = calendarLink
	return nil
}

func (f *fakeBookings) Cancel(ctx context.Context, id uint64) error {
	b, ok := f.byID[id]
	if !ok || b.Status != model.BookingConfirmed {
		return repository.ErrNotFound
	}
	b.Status = model.BookingCancelled
	b.SeatLabels = nil
	return nil
}

func (f *fakeBookings) ExtendHold(ctx context.Context, id uint64, until time.Time) error {
	b, ok := f.byID[id]
	if !ok || b.Status != model.BookingPending {
		return repository.ErrNotFound
	}
	b.HoldExpiresAt = until
	return nil
}

type memOTPStore struct {
	byEmail map[string]model.OTP
	nextID  uint64
}

func newMemOTPStore() *memOTPStore {
	return &memOTPStore{byEmail: map[string]model.OTP{}, nextID: 1}
}

func (m *memOTPStore) Replace(ctx context.Context, rec *model.OTP) error {
	rec.ID = m.nextID
	m.nextID++
	m.byEmail[rec.Email] = *rec
	return nil
}

func (m *memOTPStore) GetByEmail(ctx context.Context, email string) (model.OTP, error) {
	if rec, ok := m.byEmail[email]; ok {
		return rec, nil
	}
	return model.OTP{}, repository.ErrNotFound
}

func (m *memOTPStore) Consume(ctx context.Context, id uint64) error {
	for email, rec := range m.byEmail {
		if rec.ID == id {
			delete(m.byEmail, email)
			return nil
		}
	}
	return repository.ErrNotFound
}

type sentMail struct {
	kind string
	to   string
	code string
}

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (f *fakeNotifier) SendOTP(ctx context.Context, to string, b model.Booking, code string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: "otp", to: to, code: code})
	return nil
}

func (f *fakeNotifier) SendConfirmation(ctx context.Context, to string, b model.Booking, rawToken string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: "confirmation", to: to})
	return nil
}

func (f *fakeNotifier) SendCancellation(ctx context.Context, to string, b model.Booking) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: "cancellation", to: to})
	return nil
}

func (f *fakeNotifier) lastOTP() string {
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].kind == "otp" {
			return f.sent[i].code
		}
	}
	return ""
}

// ---- fixture ----

type fixture struct {
	svc      *BookingService
	settings *fakeSettings
	users    *fakeUsers
	bookings *fakeBookings
	notifier *fakeNotifier
	now      time.Time
}

// newFixture builds a service around a Tuesday 2026-09-01 clock with a
// September reservation window, five seats per date and a two-seat
// per-user limit. The single event slot starts at 18:00.
func newFixture() *fixture {
	f := &fixture{now: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)}
	f.settings = &fakeSettings{s: model.SystemSettings{
		ID:                   1,
		ReservationOpenDate:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		ReservationCloseDate: time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		DefaultTotalSeats:    5,
		EventTimes:           []string{"18:00"},
		MaxSeatsPerUser:      2,
		MinCancellationHours: 2,
	}}
	f.users = newFakeUsers()
	f.bookings = newFakeBookings(func() time.Time { return f.now })
	f.notifier = &fakeNotifier{}
	issuer := NewOTPIssuer(newMemOTPStore(), 10*time.Minute)
	issuer.now = func() time.Time { return f.now }
	f.svc = NewBookingService(f.settings, f.users, f.bookings, issuer, f.notifier)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

// initiate and verify a booking end to end, returning the verify result.
func (f *fixture) book(t *testing.T, email, date string, seats []string) VerifyResult {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.InitiateBooking(ctx, email, date, seats)
	require.NoError(t, err)
	res, err := f.svc.VerifyOTPAndCompleteBooking(ctx, email, f.notifier.lastOTP())
	require.NoError(t, err)
	return res
}

// ---- availability ----

func TestGetAvailableSeats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.book(t, "alice@example.com", "2026-09-04", []string{"A1", "A3"})

	avail, err := f.svc.GetAvailableSeats(ctx, "2026-09-04")
	require.NoError(t, err)
	assert.Equal(t, 5, avail.TotalSeats)
	assert.ElementsMatch(t, []string{"A1", "A3"}, avail.BookedSeatLabels)
	assert.Equal(t, []string{"A2", "A4", "A5"}, avail.FreeSeatLabels)
}

func TestGetAvailableSeats_OutsideWindow(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetAvailableSeats(context.Background(), "2026-10-01")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestGetAvailableSeats_BlockedDate(t *testing.T) {
	f := newFixture()
	f.settings.s.BlockedDates = []time.Time{time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)}
	_, err := f.svc.GetAvailableSeats(context.Background(), "2026-09-04")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestGetAvailableSeats_NonWorkingDay(t *testing.T) {
	f := newFixture()
	f.settings.s.WorkingDays = []int{1, 2, 3, 4, 5}
	// 2026-09-06 is a Sunday.
	_, err := f.svc.GetAvailableSeats(context.Background(), "2026-09-06")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestGetAvailableSeats_CapacityOverride(t *testing.T) {
	f := newFixture()
	f.settings.s.SeatCapacityOverrides = []model.SeatCapacityOverride{
		{Date: time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC), TotalSeats: 12},
	}
	avail, err := f.svc.GetAvailableSeats(context.Background(), "2026-09-04")
	require.NoError(t, err)
	assert.Equal(t, 12, avail.TotalSeats)
	assert.Len(t, avail.FreeSeatLabels, 12)
	assert.Contains(t, avail.FreeSeatLabels, "B2")
}

func TestGetAvailableSeats_NoSettings(t *testing.T) {
	f := newFixture()
	f.settings.err = repository.ErrNotFound
	_, err := f.svc.GetAvailableSeats(context.Background(), "2026-09-04")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

// ---- initiate ----

func TestInitiateBooking(t *testing.T) {
	f := newFixture()
	res, err := f.svc.InitiateBooking(context.Background(), " Alice@Example.com ", "2026-09-04", []string{"a2", "A1", "a1"})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", res.Email)
	assert.Equal(t, []string{"A1", "A2"}, res.SeatLabels, "labels are normalized and deduplicated")
	assert.Equal(t, f.now.Add(10*time.Minute), res.HoldExpiresAt)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "otp", f.notifier.sent[0].kind)
	assert.Len(t, f.notifier.sent[0].code, utils.OTPLength)
}

func TestInitiateBooking_SeatAlreadyHeld(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A1"})
	require.NoError(t, err)

	_, err = f.svc.InitiateBooking(ctx, "bob@example.com", "2026-09-04", []string{"A1"})
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestInitiateBooking_HeldSeatFreesAfterHoldLapses(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A1"})
	require.NoError(t, err)

	f.advance(11 * time.Minute)

	_, err = f.svc.InitiateBooking(ctx, "bob@example.com", "2026-09-04", []string{"A1"})
	assert.NoError(t, err, "an expired hold releases the seat")
}

func TestInitiateBooking_UnknownSeatLabel(t *testing.T) {
	f := newFixture()
	_, err := f.svc.InitiateBooking(context.Background(), "alice@example.com", "2026-09-04", []string{"Z9"})
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestInitiateBooking_SeatLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.book(t, "alice@example.com", "2026-09-04", []string{"A1", "A2"})

	_, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A3"})
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	// Another date is a separate allowance.
	_, err = f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-07", []string{"A3"})
	assert.NoError(t, err)
}

func TestInitiateBooking_ReplacesPreviousPendingHold(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A1", "A2"})
	require.NoError(t, err)

	// Re-initiating abandons the first hold, so the limit is not tripped
	// and the old seats free up.
	_, err = f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A3", "A4"})
	require.NoError(t, err)

	avail, err := f.svc.GetAvailableSeats(ctx, "2026-09-04")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A3", "A4"}, avail.BookedSeatLabels)
}

func TestInitiateBooking_BadInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.InitiateBooking(ctx, "not-an-email", "2026-09-04", []string{"A1"})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = f.svc.InitiateBooking(ctx, "alice@example.com", "04/09/2026", []string{"A1"})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", nil)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestInitiateBooking_EmailFailureKeepsHold(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.notifier.err = context.DeadlineExceeded

	_, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A1"})
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))

	// The seat stays held until the hold lapses; resend can recover it.
	f.notifier.err = nil
	avail, err := f.svc.GetAvailableSeats(ctx, "2026-09-04")
	require.NoError(t, err)
	assert.Contains(t, avail.BookedSeatLabels, "A1")
}

// ---- verify ----

func TestVerifyOTPAndCompleteBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A1", "A2"})
	require.NoError(t, err)
	code := f.notifier.lastOTP()

	res, err := f.svc.VerifyOTPAndCompleteBooking(ctx, "alice@example.com", code)
	require.NoError(t, err)

	assert.Regexp(t, `^TKT-[0-9a-f]{12}$`, res.TicketID)
	assert.NotEmpty(t, res.ReservationToken)
	assert.Equal(t, "2026-09-04", res.EventDate)
	assert.Equal(t, []string{"A1", "A2"}, res.SeatLabels)
	assert.Contains(t, res.QRPayload, res.TicketID)
	assert.Contains(t, res.CalendarLink, "calendar.google.com")

	stored, err := f.bookings.GetByTicketID(ctx, res.TicketID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, stored.Status)
	assert.Equal(t, utils.HashToken(res.ReservationToken), stored.ReservationTokenHash,
		"only the token hash is persisted")

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "confirmation", f.notifier.sent[1].kind)
}

func TestVerifyOTP_CodeIsConsumed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A1"})
	require.NoError(t, err)
	code := f.notifier.lastOTP()

	_, err = f.svc.VerifyOTPAndCompleteBooking(ctx, "alice@example.com", code)
	require.NoError(t, err)

	_, err = f.svc.VerifyOTPAndCompleteBooking(ctx, "alice@example.com", code)
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A1"})
	require.NoError(t, err)

	_, err = f.svc.VerifyOTPAndCompleteBooking(ctx, "alice@example.com", "000000")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	// A wrong code does not consume the stored one.
	_, err = f.svc.VerifyOTPAndCompleteBooking(ctx, "alice@example.com", f.notifier.lastOTP())
	assert.NoError(t, err)
}

func TestVerifyOTP_Expired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A1"})
	require.NoError(t, err)
	code := f.notifier.lastOTP()

	f.advance(11 * time.Minute)

	_, err = f.svc.VerifyOTPAndCompleteBooking(ctx, "alice@example.com", code)
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestVerifyOTP_NeverIssued(t *testing.T) {
	f := newFixture()
	_, err := f.svc.VerifyOTPAndCompleteBooking(context.Background(), "nobody@example.com", "123456")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

// ---- resend ----

func TestResendOTP(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first, err := f.svc.InitiateBooking(ctx, "alice@example.com", "2026-09-04", []string{"A1"})
	require.NoError(t, err)
	oldCode := f.notifier.lastOTP()

	f.advance(5 * time.Minute)

	res, err := f.svc.ResendOTP(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, res.HoldExpiresAt.After(first.HoldExpiresAt), "resend extends the hold")

	// The old code is dead, the new one works.
	_, err = f.svc.VerifyOTPAndCompleteBooking(ctx, "alice@example.com", oldCode)
	require.Error(t, err, "previous code should be invalidated")

	_, err = f.svc.VerifyOTPAndCompleteBooking(ctx, "alice@example.com", f.notifier.lastOTP())
	assert.NoError(t, err)
}

func TestResendOTP_NoPendingBooking(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ResendOTP(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

// ---- cancel ----

func TestCancelBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	booked := f.book(t, "alice@example.com", "2026-09-04", []string{"A1", "A2"})

	res, err := f.svc.CancelBooking(ctx, booked.TicketID, booked.ReservationToken)
	require.NoError(t, err)
	assert.Equal(t, booked.TicketID, res.TicketID)
	assert.ElementsMatch(t, []string{"A1", "A2"}, res.SeatLabels)

	avail, err := f.svc.GetAvailableSeats(ctx, "2026-09-04")
	require.NoError(t, err)
	assert.Empty(t, avail.BookedSeatLabels, "cancelled seats are released")

	assert.Equal(t, "cancellation", f.notifier.sent[len(f.notifier.sent)-1].kind)
}

func TestCancelBooking_WrongToken(t *testing.T) {
	f := newFixture()
	booked := f.book(t, "alice@example.com", "2026-09-04", []string{"A1"})

	_, err := f.svc.CancelBooking(context.Background(), booked.TicketID, "deadbeef")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestCancelBooking_UnknownTicket(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CancelBooking(context.Background(), "TKT-ffffffffffff", "token")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestCancelBooking_NoticeWindow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	// Event starts 2026-09-01 18:00 with 2h notice, so the cutoff is 16:00.
	booked := f.book(t, "alice@example.com", "2026-09-01", []string{"A1"})

	f.now = time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC)
	_, err := f.svc.CancelBooking(ctx, booked.TicketID, booked.ReservationToken)
	require.Error(t, err, "cancellation exactly at the cutoff is too late")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	f.now = time.Date(2026, 9, 1, 15, 59, 59, 0, time.UTC)
	_, err = f.svc.CancelBooking(ctx, booked.TicketID, booked.ReservationToken)
	assert.NoError(t, err)
}

func TestCancelBooking_AlreadyCancelled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	booked := f.book(t, "alice@example.com", "2026-09-04", []string{"A1"})

	_, err := f.svc.CancelBooking(ctx, booked.TicketID, booked.ReservationToken)
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, booked.TicketID, booked.ReservationToken)
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
