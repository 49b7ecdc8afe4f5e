package httpapi

import (
	"context"

	"github.com/dmitrijs2005/shopkeeper/internal/token"
)

type ctxKey string

const claimsKey ctxKey = "claims"

func withClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFrom returns the claims stored by the authentication middleware.
func ClaimsFrom(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*token.Claims)
	return c, ok && c != nil
}
