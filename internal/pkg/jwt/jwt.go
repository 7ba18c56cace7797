package jwt

import (
	"context"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what a session token carries. ID (jti) is the session id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

type JSONWebToken struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewJSONWebToken parses PEM encoded RSA keys. A key that is missing or
// malformed disables the operation that needs it.
func NewJSONWebToken(privateKey, publicKey []byte) *JSONWebToken {
	j := &JSONWebToken{}

	if len(privateKey) > 0 {
		if k, err := jwt.ParseRSAPrivateKeyFromPEM(privateKey); err == nil {
			j.privateKey = k
		}
	}

	if len(publicKey) > 0 {
		if k, err := jwt.ParseRSAPublicKeyFromPEM(publicKey); err == nil {
			j.publicKey = k
		}
	}

	return j
}

func (j *JSONWebToken) Sign(ctx context.Context, sessionID, subject, role string, ttl time.Duration) (string, error) {
	if j.privateKey == nil {
		return "", fmt.Errorf("jwt: private key is not configured")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.privateKey)
}

func (j *JSONWebToken) Parse(ctx context.Context, tokenString string) (Claims, error) {
	if j.publicKey == nil {
		return Claims{}, fmt.Errorf("jwt: public key is not configured")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return j.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return Claims{}, err
	}

	return claims, nil
}
