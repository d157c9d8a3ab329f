package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTPCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewOTPCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code, "codes are zero-padded to six digits")
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1, "codes vary between calls")
}

func TestNewTicketID(t *testing.T) {
	a, err := NewTicketID()
	require.NoError(t, err)
	b, err := NewTicketID()
	require.NoError(t, err)

	assert.Regexp(t, `^TKT-[0-9a-f]{12}$`, a)
	assert.NotEqual(t, a, b)
}

func TestNewReservationToken(t *testing.T) {
	tok, err := NewReservationToken()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{64}$`, tok)
}

func TestHashToken(t *testing.T) {
	h := HashToken("secret-token")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashToken("secret-token"))
	assert.NotEqual(t, h, HashToken("other-token"))
}
