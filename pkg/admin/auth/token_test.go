package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	assert.ErrorIs(t, err, ErrInvalidSecretLength)
}

func TestGenerateAndValidate(t *testing.T) {
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := svc.Generate("ops", time.Minute, ScopeShutdown)
	require.NoError(t, err)

	claims, err := svc.ValidateScope(token, ScopeShutdown)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
}

func TestValidateFailures(t *testing.T) {
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		token, err := svc.Generate("ops", -time.Minute, ScopeShutdown)
		require.NoError(t, err)
		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenService("fedcba9876543210fedc")
		require.NoError(t, err)
		token, err := other.Generate("ops", time.Minute, ScopeShutdown)
		require.NoError(t, err)
		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing scope", func(t *testing.T) {
		token, err := svc.Generate("ops", time.Minute)
		require.NoError(t, err)
		_, err = svc.ValidateScope(token, ScopeShutdown)
		assert.ErrorIs(t, err, ErrMissingScope)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: DefaultIssuer},
			Scopes:           []string{ScopeShutdown},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
