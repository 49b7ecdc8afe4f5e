package client

import (
	"context"

	"github.com/dmitrijs2005/shopkeeper/internal/models"
)

// Client is the contract of the remote auth API.
type Client interface {
	Register(ctx context.Context, in models.RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, creds models.Credentials) (*models.User, string, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*models.User, error)
	SetRole(ctx context.Context, token string, email string, role models.Role) (*models.User, error)
}
