package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("0123456789abcdef0123456789abcdef", time.Hour)

	issued, err := s.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.TokenID)

	claims, err := s.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, issued.TokenID, claims.ID)

	exp, err := PeekExpiry(issued.Token)
	require.NoError(t, err)
	assert.WithinDuration(t, issued.ExpiresAt, exp, time.Second)
}

func TestSigner_RejectsExpired(t *testing.T) {
	s := NewSigner("secret", time.Minute)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	issued, err := s.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(issued.Token)
	require.Error(t, err)
}

func TestSigner_RejectsForeignSecret(t *testing.T) {
	issued, err := NewSigner("one", time.Hour).GenerateToken("u", "e@example.com")
	require.NoError(t, err)

	_, err = NewSigner("two", time.Hour).ValidateToken(issued.Token)
	require.Error(t, err)
}

func TestSigner_Uninitialized(t *testing.T) {
	_, err := NewSigner("", time.Hour).GenerateToken("u", "e")
	require.ErrorIs(t, err, ErrSecretNotInitialized)
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("short")
	require.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("correct-password")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword("correct-password", hash))
	assert.Error(t, VerifyPassword("wrong-password", hash))
}
