package util

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RoleServiceRole is the Supabase role carried by service-role keys.
const RoleServiceRole = "service_role"

// Claims is the subset of a Supabase JWT the API reads.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func parsePublicKey(pemKey string) (any, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub, nil
}

var (
	hmacMethods  = []string{"HS256", "HS384", "HS512"}
	rsaMethods   = []string{"RS256", "RS384", "RS512"}
	ecdsaMethods = []string{"ES256", "ES384", "ES512"}
)

// verificationKey resolves keyMaterial to a key and the only algorithms it may verify.
// A PEM block is an RSA or ECDSA public key; anything else is an HMAC secret.
func verificationKey(keyMaterial string) (any, []string, error) {
	if block, _ := pem.Decode([]byte(keyMaterial)); block == nil {
		return []byte(keyMaterial), hmacMethods, nil
	}
	pub, err := parsePublicKey(keyMaterial)
	if err != nil {
		return nil, nil, err
	}
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return k, rsaMethods, nil
	case *ecdsa.PublicKey:
		return k, ecdsaMethods, nil
	default:
		return nil, nil, fmt.Errorf("unsupported public key type %T", pub)
	}
}

// ValidateJWT verifies the signature and registered claims of tokenString. exp is required.
func ValidateJWT(tokenString, keyMaterial string) (*Claims, error) {
	if keyMaterial == "" {
		return nil, errors.New("no JWT key configured")
	}
	key, methods, err := verificationKey(keyMaterial)
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods(methods), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
