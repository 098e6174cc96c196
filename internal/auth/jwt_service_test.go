package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "datahaven"})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(42, true)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.True(t, claims.IsAdmin)
	require.Equal(t, "datahaven", claims.Issuer)
	require.Equal(t, "42", claims.Subject)
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}

func TestGenerateRejectsZeroUserID(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = svc.GenerateAccessToken(0, false)
	require.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issued := time.Now()
	clock := issued

	svc, err := NewJWTService(JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return clock },
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(7, false)
	require.NoError(t, err)

	clock = issued.Add(30 * time.Second)
	_, err = svc.ValidateAccessToken(token)
	require.NoError(t, err)

	clock = issued.Add(2 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issuing, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "somewhere-else"})
	require.NoError(t, err)
	validating, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "datahaven"})
	require.NoError(t, err)

	token, err := issuing.GenerateAccessToken(7, false)
	require.NoError(t, err)

	_, err = validating.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	other, err := NewJWTService(JWTConfig{Secret: "different"})
	require.NoError(t, err)

	token, err := other.GenerateAccessToken(7, false)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}
