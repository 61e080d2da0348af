// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims binds a signed token to the opaque session record it
// represents. The session store remains the source of truth for
// expiry and last-used tracking; the signature only proves the token
// was minted by this server and was not tampered with in transit.
type sessionClaims struct {
	SessionToken string `json:"sid"`
	jwt.RegisteredClaims
}

// tokenSigner signs and verifies the bearer token returned by login.
type tokenSigner struct {
	secret []byte
}

// newTokenSigner builds a signer from a server secret. The secret should
// be at least 32 bytes; shorter secrets weaken HMAC-SHA256 considerably.
func newTokenSigner(secret []byte) (*tokenSigner, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("auth: session signing secret must be at least 32 bytes")
	}
	return &tokenSigner{secret: secret}, nil
}

// sign produces a bearer token for sessionToken, expiring at expiresAt.
func (t *tokenSigner) sign(sessionToken string, expiresAt time.Time) (string, error) {
	claims := &sessionClaims{
		SessionToken: sessionToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// verify checks the bearer token's signature and expiry, returning the
// underlying session token it was minted for.
func (t *tokenSigner) verify(bearerToken string) (string, error) {
	parsed, err := jwt.ParseWithClaims(bearerToken, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse bearer token: %w", err)
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid bearer token claims")
	}
	return claims.SessionToken, nil
}
