// Package services contains server-side business logic. UserService handles
// registration, login, token authentication, logout revocation and role
// elevation on top of the users and revocations repositories.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/cryptox"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shopkeeper/internal/token"
	"github.com/google/uuid"
)

// AuthResult is what register and login hand back to the caller.
type AuthResult struct {
	Token string
	User  *models.User
}

// UserService provides authentication-related operations.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       token.Codec
	hasher      *cryptox.PasswordHasher
	ttl         time.Duration
	log         logging.Logger
	now         func() time.Time
}

// NewUserService constructs a UserService. Tokens are minted by codec and
// live for ttl.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, codec token.Codec,
	hasher *cryptox.PasswordHasher, ttl time.Duration, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		codec:       codec,
		hasher:      hasher,
		ttl:         ttl,
		log:         log.With("module", "user_service"),
		now:         time.Now,
	}
}

// Register creates a user account with the user role and signs it in.
// Any role in the input is ignored: elevation goes through SetRole.
func (s *UserService) Register(ctx context.Context, in models.RegisterInput) (*AuthResult, error) {
	in.Normalize()
	in.Role = models.RoleNone
	if err := in.Validate(); err != nil {
		return nil, err
	}

	created, err := s.create(ctx, in.Name, in.Email, in.Password, models.RoleUser)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", created.ID)
	return s.issue(created)
}

// Login checks the credentials against the stored hash. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, creds models.Credentials) (*AuthResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	ok, err := s.hasher.Check(user.PasswordHash, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	return s.issue(user.Public())
}

// Authenticate verifies a bearer token and rejects revoked ones.
func (s *UserService) Authenticate(ctx context.Context, tok string) (*token.Claims, error) {
	claims, err := s.codec.Verify(tok)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: token has no id", common.ErrTokenExpiredOrInvalid)
	}

	revoked, err := s.repomanager.Revocations(s.db).IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", common.ErrTokenExpiredOrInvalid)
	}
	return claims, nil
}

// Me returns the current record of the token's user. A deleted account
// invalidates the token.
func (s *UserService) Me(ctx context.Context, claims *token.Claims) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", common.ErrTokenExpiredOrInvalid)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return user.Public(), nil
}

// Logout revokes the token until its natural expiry.
func (s *UserService) Logout(ctx context.Context, claims *token.Claims) error {
	expires := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := s.repomanager.Revocations(s.db).Revoke(ctx, claims.ID, expires); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	s.log.Info(ctx, "user logged out", "user_id", claims.UserID)
	return nil
}

// SetRole changes the role of the account with the given email. The actor's
// role is re-read inside the transaction so a token minted before a demotion
// cannot be used to elevate anyone.
func (s *UserService) SetRole(ctx context.Context, actor *token.Claims, email string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, &models.ValidationError{Fields: []models.FieldError{
			{Field: "role", Message: fmt.Sprintf("unknown role %q", role)},
		}}
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		current, err := repo.GetByID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrForbidden
			}
			return err
		}
		if current.Role != models.RoleAdmin {
			return common.ErrForbidden
		}

		updated, err = repo.SetRole(ctx, email, role)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrForbidden) || errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "role changed", "actor", actor.UserID, "user_id", updated.ID, "role", string(role))
	return updated, nil
}

// EnsureAdmin creates an admin account with the given credentials unless an
// account with that email already exists. An existing account is left as is.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	_, err := s.create(ctx, name, email, password, models.RoleAdmin)
	switch {
	case err == nil:
		s.log.Info(ctx, "admin account created", "email", email)
		return nil
	case errors.Is(err, common.ErrAlreadyExists):
		return nil
	default:
		return err
	}
}

// PurgeRevocations drops revocations of tokens that have expired anyway.
func (s *UserService) PurgeRevocations(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Revocations(s.db).PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *UserService) create(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user := &models.StoredUser{
		User: models.User{
			ID:    uuid.NewString(),
			Name:  name,
			Email: email,
			Role:  role,
		},
		PasswordHash: hash,
	}

	created, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return created.Public(), nil
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	tok, err := s.codec.Issue(token.ClaimsFor(u), s.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %v", common.ErrorInternal, err)
	}
	return &AuthResult{Token: tok, User: u}, nil
}
