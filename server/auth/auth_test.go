package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := GenerateAccessToken(42, "secret", now)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := Authenticate("Bearer "+token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int32(42), userID)
}

func TestAuthenticateRejections(t *testing.T) {
	now := time.Now()
	token, err := GenerateAccessToken(42, "secret", now)
	require.NoError(t, err)

	_, err = Authenticate(token, "secret")
	assert.Error(t, err, "missing Bearer prefix")

	_, err = Authenticate("Bearer "+token, "other-secret")
	assert.Error(t, err, "wrong secret")

	expired, err := GenerateAccessToken(42, "secret", now.Add(-AccessTokenDuration-time.Hour))
	require.NoError(t, err)
	_, err = Authenticate("Bearer "+expired, "secret")
	assert.Error(t, err, "expired token")

	_, err = Authenticate("Bearer not-a-token", "secret")
	assert.Error(t, err)
}

func TestTokenFromHeader(t *testing.T) {
	token, ok := TokenFromHeader("Bearer abc123")
	require.True(t, ok)
	assert.Equal(t, "abc123", token)

	_, ok = TokenFromHeader("abc123")
	assert.False(t, ok)

	_, ok = TokenFromHeader("")
	assert.False(t, ok)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("token"), HashToken("token"))
	assert.NotEqual(t, HashToken("token"), HashToken("other"))
	assert.Len(t, HashToken("token"), 64)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, VerifyPassword(hash, "correct horse battery staple"))
	assert.False(t, VerifyPassword(hash, "wrong password"))
}
