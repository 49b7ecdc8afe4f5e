package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// HMACCodec signs tokens with HMAC-SHA256. Every issued token gets a unique
// jti so it can be revoked individually.
type HMACCodec struct {
	secret []byte
	now    func() time.Time
}

// NewHMACCodec returns a codec keyed with secret.
func NewHMACCodec(secret []byte) *HMACCodec {
	return &HMACCodec{secret: secret, now: time.Now}
}

// WithClock replaces the time source. Used in tests.
func (c *HMACCodec) WithClock(now func() time.Time) *HMACCodec {
	c.now = now
	return c
}

func (c *HMACCodec) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := c.now()
	claims.ExpiresAt = expiresAt(now, ttl)
	claims.IssuedAt = jwt.NewNumericDate(now)
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *HMACCodec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, invalid(errors.New("empty token"))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now), jwt.WithLeeway(time.Second))
	if err != nil {
		return nil, invalid(err)
	}
	if !tok.Valid {
		return nil, invalid(errors.New("token is not valid"))
	}
	return claims, nil
}
