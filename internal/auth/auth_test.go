package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_CheckPassword(t *testing.T) {
	t.Parallel()

	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("12345678")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.False(t, CheckPassword("", "12345678"))
	assert.True(t, CheckPassword(hash, "12345678"))
	assert.False(t, CheckPassword(hash, "wrong-password"))
}

func TestSignVerifyToken(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, err := SignToken(secret, "user-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tok, "v1."))

	c, ok := VerifyToken(secret, tok, now)
	require.True(t, ok)
	assert.Equal(t, "user-1", c.UserID)

	_, ok = VerifyToken(secret, tok, now.Add(2*time.Hour))
	assert.False(t, ok, "expired token")

	_, ok = VerifyToken([]byte("other-secret"), tok, now)
	assert.False(t, ok, "wrong secret")

	_, ok = VerifyToken(secret, "", now)
	assert.False(t, ok)
}

func TestVerifyToken_Tampered(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret")
	now := time.Now()
	tok, err := SignToken(secret, "user-1", now.Add(time.Hour))
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"uid":"admin","exp":9999999999}`))
	_, ok := VerifyToken(secret, parts[0]+"."+forged+"."+parts[2], now)
	assert.False(t, ok)

	_, ok = VerifyToken(secret, "v2."+parts[1]+"."+parts[2], now)
	assert.False(t, ok)
}

func TestSignToken_RequiresSecretAndUser(t *testing.T) {
	t.Parallel()

	_, err := SignToken(nil, "user-1", time.Now())
	assert.Error(t, err)
	_, err = SignToken([]byte("s"), "", time.Now())
	assert.Error(t, err)
}

func TestNewAPIKey(t *testing.T) {
	t.Parallel()

	a, b := NewAPIKey(), NewAPIKey()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
