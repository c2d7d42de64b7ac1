package util

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inAnHour() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
}

func signHS256(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestValidateJWTHMAC(t *testing.T) {
	claims := Claims{
		Role:             RoleServiceRole,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	token := signHS256(t, "super-secret", claims)

	got, err := ValidateJWT(token, "super-secret")
	require.NoError(t, err)
	assert.Equal(t, RoleServiceRole, got.Role)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)

	_, err = ValidateJWT(token, "")
	assert.Error(t, err)
}

func TestValidateJWTExpired(t *testing.T) {
	claims := Claims{
		Role:             RoleServiceRole,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}
	_, err := ValidateJWT(signHS256(t, "s", claims), "s")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateJWTRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{Role: "authenticated", RegisteredClaims: inAnHour()}).SignedString(key)
	require.NoError(t, err)

	got, err := ValidateJWT(token, pemKey)
	require.NoError(t, err)
	assert.Equal(t, "authenticated", got.Role)

	_, err = ValidateJWT(token, "not a pem")
	assert.Error(t, err)
}

func rsaPublicPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestValidateJWTRejectsHMACSignedWithPublicKey(t *testing.T) {
	pubPEM := rsaPublicPEM(t)
	// the public key is not secret, so an HS256 token signed with its text must not verify
	forged := signHS256(t, pubPEM, Claims{Role: RoleServiceRole, RegisteredClaims: inAnHour()})

	_, err := ValidateJWT(forged, pubPEM)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateJWTRejectsRSAWhenSecretConfigured(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{Role: RoleServiceRole, RegisteredClaims: inAnHour()}).SignedString(key)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "super-secret")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateJWTRequiresExpiry(t *testing.T) {
	token := signHS256(t, "s", Claims{Role: RoleServiceRole})

	_, err := ValidateJWT(token, "s")
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
}

func TestValidateJWTGarbage(t *testing.T) {
	_, err := ValidateJWT("not.a.jwt", "secret")
	assert.Error(t, err)
}
