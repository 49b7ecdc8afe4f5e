// Package common contains shared constants and sentinel errors used across
// shopkeeper components.
package common

const (
	// AuthHeaderName is the HTTP header carrying the bearer token.
	AuthHeaderName = "Authorization"

	// BearerPrefix precedes the token in AuthHeaderName.
	BearerPrefix = "Bearer "
)

// BearerValue formats token as an Authorization header value.
func BearerValue(token string) string {
	return BearerPrefix + token
}
