package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultDemoSecret is the shared string the demo signature is derived from.
const DefaultDemoSecret = "yozi-shop-demo-secret-key-2026"

// constantSignature is a jwt.SigningMethod whose signature is always the
// configured string. It reports itself as HS256 so the header keeps the
// familiar shape, but nothing about it is keyed.
type constantSignature struct {
	value []byte
}

func (m constantSignature) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (m constantSignature) Sign(string, any) ([]byte, error) {
	return m.value, nil
}

func (m constantSignature) Verify(_ string, sig []byte, _ any) error {
	if string(sig) != string(m.value) {
		return jwt.ErrSignatureInvalid
	}
	return nil
}

// FixedSecretCodec produces tokens whose signature segment is the base64 of a
// fixed string. Verify does not look at the signature at all: a token is
// accepted when it has three segments, decodes to JSON and is not expired.
//
// Known weakness: the token is forgeable. Do not use it where integrity
// matters; the auth server uses HMACCodec.
type FixedSecretCodec struct {
	method constantSignature
	now    func() time.Time
}

// NewFixedSecretCodec returns a codec signing with secret, or with
// DefaultDemoSecret when secret is empty.
func NewFixedSecretCodec(secret string) *FixedSecretCodec {
	if secret == "" {
		secret = DefaultDemoSecret
	}
	return &FixedSecretCodec{method: constantSignature{value: []byte(secret)}, now: time.Now}
}

// WithClock replaces the time source. Used in tests.
func (c *FixedSecretCodec) WithClock(now func() time.Time) *FixedSecretCodec {
	c.now = now
	return c
}

// Issue returns claims encoded as a token expiring ttl from now.
func (c *FixedSecretCodec) Issue(claims Claims, ttl time.Duration) (string, error) {
	claims.ExpiresAt = expiresAt(c.now(), ttl)
	return jwt.NewWithClaims(c.method, claims).SignedString(nil)
}

// Verify returns the decoded claims or common.ErrTokenExpiredOrInvalid.
func (c *FixedSecretCodec) Verify(tokenString string) (*Claims, error) {
	return inspect(tokenString, c.now)
}

// inspect decodes a token without checking its signature and validates the
// registered claims against now. The header only has to be JSON; its alg is
// informational. A token expires once exp < now at second precision.
func inspect(tokenString string, now func() time.Time) (*Claims, error) {
	if tokenString == "" {
		return nil, invalid(errors.New("empty token"))
	}

	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, invalid(fmt.Errorf("token has %d segments", len(parts)))
	}

	parser := jwt.NewParser(jwt.WithPaddingAllowed())
	header, err := parser.DecodeSegment(parts[0])
	if err != nil {
		return nil, invalid(fmt.Errorf("header: %w", err))
	}
	if !json.Valid(header) {
		return nil, invalid(errors.New("header is not JSON"))
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, invalid(fmt.Errorf("payload: %w", err))
	}
	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, invalid(fmt.Errorf("payload: %w", err))
	}

	if err := newValidator(now).Validate(claims); err != nil {
		return nil, invalid(err)
	}
	return claims, nil
}
