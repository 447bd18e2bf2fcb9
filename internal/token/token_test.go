package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, c jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestInspect(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := sign(t, jwt.MapClaims{"sub": "a@example.com", "exp": exp.Unix(), "type": "access"})

	info, err := Inspect(raw)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", info.Subject)
	assert.Equal(t, "access", info.Type)
	assert.True(t, info.ExpiresAt.Equal(exp))

	assert.Equal(t, 30*time.Minute, info.Remaining(exp.Add(-30*time.Minute)))
	assert.Zero(t, info.Remaining(exp.Add(time.Hour)))
	assert.True(t, info.Expired(exp))
	assert.False(t, info.Expired(exp.Add(-time.Second)))
}

func TestInspectWithoutExpiry(t *testing.T) {
	info, err := Inspect(sign(t, jwt.MapClaims{"sub": "x"}))
	require.ErrorIs(t, err, ErrNoExpiry)
	assert.Equal(t, "x", info.Subject)
}

func TestInspectGarbage(t *testing.T) {
	_, err := Inspect("not-a-jwt")
	require.Error(t, err)
}
