package service

import (
	"context"
	"time"

	"github.com/Techmanna/seat-reservation-api/internal/apperr"
	"github.com/Techmanna/seat-reservation-api/internal/model"
	"github.com/Techmanna/seat-reservation-api/internal/repository"
	"github.com/Techmanna/seat-reservation-api/internal/utils"
)

// OTPStore is the persistence surface the issuer needs.
type OTPStore interface {
	Replace(ctx context.Context, rec *model.OTP) error
	GetByEmail(ctx context.Context, email string) (model.OTP, error)
	Consume(ctx context.Context, id uint64) error
}

// OTPIssuer generates and verifies one-time passcodes. Codes are
// 6-digit numeric strings from crypto/rand with a fixed TTL; issuing a
// code for an email invalidates any prior one, and a successful Verify
// consumes the record so the code cannot be replayed.
type OTPIssuer struct {
	Store OTPStore
	TTL   time.Duration
	now   func() time.Time
}

// NewOTPIssuer returns an issuer with the given code lifetime.
func NewOTPIssuer(store OTPStore, ttl time.Duration) *OTPIssuer {
	return &OTPIssuer{Store: store, TTL: ttl, now: time.Now}
}

// Issue generates a fresh code for the email bound to a pending booking
// and persists it, replacing any earlier code for the address.
func (i *OTPIssuer) Issue(ctx context.Context, email string, bookingID uint64) (model.OTP, error) {
	code, err := utils.NewOTPCode()
	if err != nil {
		return model.OTP{}, err
	}
	rec := model.OTP{
		Email:     email,
		Code:      code,
		BookingID: bookingID,
		ExpiresAt: i.now().UTC().Add(i.TTL),
	}
	if err := i.Store.Replace(ctx, &rec); err != nil {
		return model.OTP{}, err
	}
	return rec, nil
}

// Verify checks the submitted code against the stored one and consumes
// it on success. A missing record (never issued or already consumed)
// fails with NotFound; expiry and mismatch fail with Validation.
func (i *OTPIssuer) Verify(ctx context.Context, email, code string) (model.OTP, error) {
	rec, err := i.Store.GetByEmail(ctx, email)
	if err == repository.ErrNotFound {
		return model.OTP{}, apperr.NotFoundf("no pending verification for this email")
	}
	if err != nil {
		return model.OTP{}, err
	}
	if rec.Expired(i.now().UTC()) {
		return model.OTP{}, apperr.Validationf("OTP has expired, request a new code")
	}
	if rec.Code != code {
		return model.OTP{}, apperr.Validationf("invalid OTP")
	}
	if err := i.Store.Consume(ctx, rec.ID); err != nil {
		if err == repository.ErrNotFound {
			// Lost a race with a concurrent verification.
			return model.OTP{}, apperr.NotFoundf("no pending verification for this email")
		}
		return model.OTP{}, err
	}
	return rec, nil
}
