package utils // helpers for generating and hashing booking secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// OTPLength is the number of digits in a one-time passcode.
const OTPLength = 6

// NewOTPCode returns a fixed-length numeric passcode drawn from
// crypto/rand. Leading zeros are preserved so the code is always
// exactly OTPLength characters.
func NewOTPCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < OTPLength; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPLength, n), nil
}

// NewTicketID returns the externally visible booking identifier, e.g.
// "TKT-5f3a9c01d2e4". The random portion is 6 bytes of crypto/rand
// hex, which is enough to make collisions vanishingly unlikely; the
// unique key on bookings.ticket_id catches the rest.
func NewTicketID() (string, error) {
	raw, err := randomHex(6)
	if err != nil {
		return "", err
	}
	return "TKT-" + raw, nil
}

// NewReservationToken returns the capability secret required together
// with the ticket ID to self-service cancel a booking. Only the
// SHA-256 hash of this value is stored; the raw token is shown to the
// customer exactly once.
func NewReservationToken() (string, error) {
	return randomHex(32) // 64 hex chars
}

// HashToken returns the SHA-256 hex digest of a raw token. Storing only
// the hash means a leaked database dump cannot be used to cancel
// other people's bookings.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
