// Package token issues and verifies the three-segment session token
// (header.payload.signature, each segment base64 JSON) used by the storefront.
//
// Two codecs share the format:
//
//   - FixedSecretCodec signs with a constant string. It gives no integrity
//     guarantee and anyone can forge a token. It exists for the local demo
//     mode and for clients that only need to read claims and expiry.
//   - HMACCodec signs with HMAC-SHA256 and a server-held secret.
//
// Every verification failure is reported as common.ErrTokenExpiredOrInvalid;
// callers treat expired and malformed tokens the same way.
package token

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	Name   string      `json:"name"`
	jwt.RegisteredClaims
}

// ClaimsFor builds the claims describing u.
func ClaimsFor(u *models.User) Claims {
	return Claims{UserID: u.ID, Email: u.Email, Role: u.Role, Name: u.Name}
}

// Issuer mints tokens.
type Issuer interface {
	Issue(claims Claims, ttl time.Duration) (string, error)
}

// Verifier decodes a token and checks its expiry.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// Codec issues and verifies tokens.
type Codec interface {
	Issuer
	Verifier
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", common.ErrTokenExpiredOrInvalid, err)
}

func expiresAt(now time.Time, ttl time.Duration) *jwt.NumericDate {
	return jwt.NewNumericDate(now.Add(ttl))
}

// newValidator checks registered claims with one second of leeway, so a
// token stays valid through the whole second named by its exp.
func newValidator(now func() time.Time) *jwt.Validator {
	return jwt.NewValidator(jwt.WithTimeFunc(now), jwt.WithLeeway(time.Second))
}
