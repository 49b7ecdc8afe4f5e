// Package users declares the server-side repository contract for accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/shopkeeper/internal/models"
)

// Repository stores registered accounts.
type Repository interface {
	// Create inserts user and fills CreatedAt. Emails are unique
	// case-insensitively; a clash returns common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.StoredUser) (*models.StoredUser, error)

	// GetByEmail looks up an account by its exact email.
	GetByEmail(ctx context.Context, email string) (*models.StoredUser, error)

	// GetByID looks up an account by id.
	GetByID(ctx context.Context, id string) (*models.StoredUser, error)

	// SetRole changes the role of the account whose email matches
	// case-insensitively and returns the updated public view.
	SetRole(ctx context.Context, email string, role models.Role) (*models.User, error)
}
