// Package revocations declares the server-side store of tokens revoked by
// logout before their natural expiry.
package revocations

import (
	"context"
	"time"
)

// Repository records revoked token ids.
type Repository interface {
	// Revoke marks jti as revoked until expiresAt. Revoking twice is not an error.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error

	// IsRevoked reports whether jti has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// PurgeExpired removes revocations whose token expired before now and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
