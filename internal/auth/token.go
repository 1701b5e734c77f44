package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims bind a server-side session token to its user. The cookie
// is worthless without the matching session record.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies session cookies with HS256.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), now: time.Now}
}

// Sign returns the cookie value for a session.
func (c *TokenCodec) Sign(sessionID, userID string, expiresAt time.Time) (string, error) {
	now := c.now()
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Parse verifies the signature and expiry and returns the session and
// user ids.
func (c *TokenCodec) Parse(token string) (sessionID, userID string, err error) {
	claims := &sessionClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", fmt.Errorf("parse session token: %w", err)
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return "", "", errors.New("parse session token: missing claims")
	}

	return claims.SessionID, claims.Subject, nil
}
