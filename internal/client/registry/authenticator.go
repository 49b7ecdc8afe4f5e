package registry

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/dmitrijs2005/shopkeeper/internal/token"
)

// Authenticator is the local-mode auth backend: accounts come from the
// Registry and tokens are minted on the client.
type Authenticator struct {
	reg   *Registry
	codec token.Codec
	ttl   time.Duration
	// allowRoleSelection lets Register honour RegisterInput.Role.
	allowRoleSelection bool
}

func NewAuthenticator(reg *Registry, codec token.Codec, ttl time.Duration, allowRoleSelection bool) *Authenticator {
	return &Authenticator{reg: reg, codec: codec, ttl: ttl, allowRoleSelection: allowRoleSelection}
}

func (a *Authenticator) Register(ctx context.Context, in models.RegisterInput) (*models.User, string, error) {
	role := models.RoleUser
	if a.allowRoleSelection && in.Role.Valid() {
		role = in.Role
	}

	u, err := a.reg.Add(ctx, in.Name, in.Email, in.Password, role)
	if err != nil {
		return nil, "", err
	}
	return a.withToken(u)
}

func (a *Authenticator) Login(ctx context.Context, creds models.Credentials) (*models.User, string, error) {
	u, err := a.reg.Authenticate(ctx, creds)
	if err != nil {
		return nil, "", err
	}
	return a.withToken(u)
}

// Logout has nothing to revoke locally.
func (a *Authenticator) Logout(context.Context, string) error {
	return nil
}

// SetRole changes another account's role. The caller's token must carry the
// admin role; with the demo token format this is a convenience check, not a
// security boundary.
func (a *Authenticator) SetRole(ctx context.Context, tok string, email string, role models.Role) (*models.User, error) {
	claims, err := a.codec.Verify(tok)
	if err != nil {
		return nil, err
	}
	if claims.Role != models.RoleAdmin {
		return nil, common.ErrForbidden
	}
	return a.reg.SetRole(ctx, email, role)
}

func (a *Authenticator) withToken(u *models.User) (*models.User, string, error) {
	tok, err := a.codec.Issue(token.ClaimsFor(u), a.ttl)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}
