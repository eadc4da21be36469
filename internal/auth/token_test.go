package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_Roundtrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Generate()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenService_WrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).Generate()
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestTokenService_Expired(t *testing.T) {
	svc := &TokenService{secret: []byte("test-secret"), expiresIn: -time.Minute}
	token, err := svc.Generate()
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestTokenService_EmptySecret(t *testing.T) {
	svc := &TokenService{expiresIn: time.Hour}
	_, err := svc.Generate()
	assert.Error(t, err)
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	_, err := svc.Validate("not.a.token")
	assert.Error(t, err)
}

func TestPasswordVerifier(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	v := NewPasswordVerifier(hash)
	assert.NoError(t, v.Verify("hunter2"))
	assert.ErrorIs(t, v.Verify("wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, v.Verify(""), ErrInvalidCredentials)
	assert.ErrorIs(t, NewPasswordVerifier("").Verify("hunter2"), ErrInvalidCredentials)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}
