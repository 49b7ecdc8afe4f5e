// Package session persists the signed-in user and token in the client's
// durable storage and owns the pending redirect slot.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/dmitrijs2005/shopkeeper/internal/token"
)

// Storage keys.
const (
	KeyUser     = "user"
	KeyToken    = "token"
	KeyRedirect = "redirect_after_login"
)

// Session is a restored sign-in.
type Session struct {
	User   *models.User
	Token  string
	Claims *token.Claims
}

// Store reads and writes the session keys. Load never hands out a user
// without a token that passes verification; anything else found in storage
// is purged.
type Store struct {
	db       *sql.DB
	verifier token.Verifier
	log      logging.Logger
}

func NewStore(db *sql.DB, verifier token.Verifier, log logging.Logger) *Store {
	return &Store{db: db, verifier: verifier, log: log.With("module", "session")}
}

func (s *Store) repo(db dbx.DBTX) *metadata.SQLiteRepository {
	return metadata.NewSQLiteRepository(db)
}

// Save stores user and token, replacing any previous session.
func (s *Store) Save(ctx context.Context, user *models.User, tok string) error {
	if user == nil || tok == "" {
		return fmt.Errorf("save session: %w: user and token are required", common.ErrValidation)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if err := repo.Set(ctx, KeyUser, data); err != nil {
			return err
		}
		return repo.Set(ctx, KeyToken, []byte(tok))
	})
}

// Load returns the stored session, or (nil, nil) when there is none.
// A half-written, corrupt or expired session is cleared and reported as
// absent. Only storage I/O failures are returned as errors.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	repo := s.repo(s.db)

	rawUser, err := repo.Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	rawToken, err := repo.Get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}

	if rawUser == nil && rawToken == nil {
		return nil, nil
	}
	if rawUser == nil || len(rawToken) == 0 {
		return nil, s.heal(ctx, fmt.Errorf("%w: incomplete session", common.ErrStorageCorrupt))
	}

	var user models.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		return nil, s.heal(ctx, fmt.Errorf("%w: user: %v", common.ErrStorageCorrupt, err))
	}

	claims, err := s.verifier.Verify(string(rawToken))
	if err != nil {
		return nil, s.heal(ctx, err)
	}
	if !models.SameEmail(claims.Email, user.Email) {
		return nil, s.heal(ctx, fmt.Errorf("%w: token belongs to another user", common.ErrStorageCorrupt))
	}

	return &Session{User: &user, Token: string(rawToken), Claims: claims}, nil
}

// heal drops the session after a failed load. It returns only a storage
// error; the cause itself is logged.
func (s *Store) heal(ctx context.Context, cause error) error {
	s.log.Warn(ctx, "discarding stored session", "reason", cause.Error())
	return s.Clear(ctx)
}

// Clear removes the user and token keys. Clearing an empty store is not an
// error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo(s.db).DeleteMany(ctx, KeyUser, KeyToken); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SetPendingRedirect remembers where to go after the next sign-in.
func (s *Store) SetPendingRedirect(ctx context.Context, path string) error {
	return s.repo(s.db).Set(ctx, KeyRedirect, []byte(path))
}

// TakePendingRedirect returns the pending path and deletes it. It returns ""
// when nothing is pending.
func (s *Store) TakePendingRedirect(ctx context.Context) (string, error) {
	var path string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		v, err := repo.Get(ctx, KeyRedirect)
		if err != nil {
			return err
		}
		path = string(v)
		return repo.Delete(ctx, KeyRedirect)
	})
	if err != nil {
		return "", fmt.Errorf("take pending redirect: %w", err)
	}
	return path, nil
}
