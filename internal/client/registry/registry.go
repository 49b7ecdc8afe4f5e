// Package registry keeps the local-mode user registry in the client's durable
// storage and authenticates against it.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/cryptox"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/google/uuid"
)

// KeyUsers is the storage key holding the whole registry as one JSON array.
const KeyUsers = "users"

// Seed is a demo account created when no registry exists yet.
type Seed struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// DefaultSeeds are the storefront's demo accounts.
var DefaultSeeds = []Seed{
	{Name: "Admin", Email: "admin@gmail.com", Password: "admin123", Role: models.RoleAdmin},
	{Name: "User", Email: "user@gmail.com", Password: "user@123", Role: models.RoleUser},
}

// Registry is the list of local accounts. Every operation reads the stored
// list, so edits made by another process sharing the file are picked up.
type Registry struct {
	mu     sync.Mutex
	db     *sql.DB
	hasher *cryptox.PasswordHasher
	seeds  []Seed
	log    logging.Logger
	now    func() time.Time
}

func New(db *sql.DB, hasher *cryptox.PasswordHasher, seeds []Seed, log logging.Logger) *Registry {
	return &Registry{
		db:     db,
		hasher: hasher,
		seeds:  seeds,
		log:    log.With("module", "registry"),
		now:    time.Now,
	}
}

// Add stores a new account. Emails are unique regardless of case; on
// ErrDuplicateEmail the registry is left untouched.
func (r *Registry) Add(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, role)
	}

	hash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	var added *models.User
	err = r.update(ctx, func(users []models.StoredUser) ([]models.StoredUser, error) {
		if indexOf(users, email) >= 0 {
			return nil, common.ErrDuplicateEmail
		}
		su := models.StoredUser{
			User: models.User{
				ID:        uuid.NewString(),
				Name:      name,
				Email:     strings.TrimSpace(email),
				Role:      role,
				CreatedAt: r.now().UTC(),
			},
			PasswordHash: hash,
		}
		added = su.Public()
		return append(users, su), nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Authenticate returns the account whose email matches exactly and whose
// password checks out.
func (r *Registry) Authenticate(ctx context.Context, creds models.Credentials) (*models.User, error) {
	users, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	for i := range users {
		if users[i].Email != creds.Email {
			continue
		}
		ok, err := r.hasher.Check(users[i].PasswordHash, creds.Password)
		if err != nil {
			r.log.Warn(ctx, "unusable password hash", "email", users[i].Email, "error", err.Error())
			return nil, common.ErrInvalidCredentials
		}
		if !ok {
			return nil, common.ErrInvalidCredentials
		}
		return users[i].Public(), nil
	}
	return nil, common.ErrInvalidCredentials
}

// SetRole changes the role of the account with the given email.
func (r *Registry) SetRole(ctx context.Context, email string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, role)
	}

	var changed *models.User
	err := r.update(ctx, func(users []models.StoredUser) ([]models.StoredUser, error) {
		i := indexOf(users, email)
		if i < 0 {
			return nil, common.ErrorNotFound
		}
		users[i].Role = role
		changed = users[i].Public()
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// List returns every account without credentials.
func (r *Registry) List(ctx context.Context) ([]models.User, error) {
	users, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, len(users))
	for i := range users {
		out[i] = *users[i].Public()
	}
	return out, nil
}

func (r *Registry) snapshot(ctx context.Context) ([]models.StoredUser, error) {
	var users []models.StoredUser
	err := r.update(ctx, func(u []models.StoredUser) ([]models.StoredUser, error) {
		users = u
		return nil, nil
	})
	return users, err
}

// update runs fn on the stored list inside one transaction. A nil slice
// returned by fn means "no change". The list is seeded when missing and
// reset to the seeds when unreadable.
func (r *Registry) update(ctx context.Context, fn func([]models.StoredUser) ([]models.StoredUser, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		users, dirty, err := r.read(ctx, repo)
		if err != nil {
			return err
		}

		next, err := fn(users)
		if err != nil {
			return err
		}
		if next != nil {
			users, dirty = next, true
		}
		if !dirty {
			return nil
		}
		return r.write(ctx, repo, users)
	})
}

func (r *Registry) read(ctx context.Context, repo metadata.Repository) ([]models.StoredUser, bool, error) {
	raw, err := repo.Get(ctx, KeyUsers)
	if err != nil {
		return nil, false, err
	}

	if raw != nil {
		var users []models.StoredUser
		err := json.Unmarshal(raw, &users)
		if err == nil {
			return users, false, nil
		}
		r.log.Warn(ctx, "resetting unreadable registry",
			"error", errors.Join(common.ErrStorageCorrupt, err).Error())
	}

	users, err := r.seed()
	if err != nil {
		return nil, false, err
	}
	return users, true, nil
}

func (r *Registry) write(ctx context.Context, repo metadata.Repository, users []models.StoredUser) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	return repo.Set(ctx, KeyUsers, data)
}

func (r *Registry) seed() ([]models.StoredUser, error) {
	users := make([]models.StoredUser, 0, len(r.seeds))
	for _, s := range r.seeds {
		hash, err := r.hasher.Hash(s.Password)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.Email, err)
		}
		users = append(users, models.StoredUser{
			User: models.User{
				ID:        uuid.NewString(),
				Name:      s.Name,
				Email:     s.Email,
				Role:      s.Role,
				CreatedAt: r.now().UTC(),
			},
			PasswordHash: hash,
		})
	}
	return users, nil
}

func indexOf(users []models.StoredUser, email string) int {
	for i := range users {
		if models.SameEmail(users[i].Email, email) {
			return i
		}
	}
	return -1
}
