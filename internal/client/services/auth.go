// Package services contains application services for the storefront client.
// This file defines the authentication service: register, login, logout and
// the current session state shared with the route guard.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/shopkeeper/internal/client/session"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/dmitrijs2005/shopkeeper/internal/token"
)

// Status is the coarse session status.
type Status int

const (
	// StatusLoading means the stored session has not been read yet.
	StatusLoading Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// SessionState is a snapshot of who is signed in.
type SessionState struct {
	Status  Status
	User    *models.User
	Token   string
	IsAdmin bool
}

// Authenticated reports whether the state carries a signed-in user.
func (s SessionState) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Backend performs account operations. The local registry authenticator and
// the remote HTTP client both implement it.
type Backend interface {
	Register(ctx context.Context, in models.RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, creds models.Credentials) (*models.User, string, error)
	Logout(ctx context.Context, token string) error
	SetRole(ctx context.Context, token string, email string, role models.Role) (*models.User, error)
}

// SessionStore persists the session between runs.
type SessionStore interface {
	Save(ctx context.Context, user *models.User, token string) error
	Load(ctx context.Context) (*session.Session, error)
	Clear(ctx context.Context) error
}

// AuthService owns the session state. It is safe for concurrent use.
//
// Reads (CurrentUser, IsAuthenticated, IsAdmin, AuthHeader, State) re-check
// token expiry; an expired session is cleared on the spot.
type AuthService struct {
	mu       sync.Mutex
	backend  Backend
	store    SessionStore
	verifier token.Verifier
	log      logging.Logger
	state    SessionState
}

// NewAuthService returns a service in the Loading state; call Init to restore
// a stored session.
func NewAuthService(backend Backend, store SessionStore, verifier token.Verifier, log logging.Logger) *AuthService {
	return &AuthService{
		backend:  backend,
		store:    store,
		verifier: verifier,
		log:      log.With("module", "auth"),
		state:    SessionState{Status: StatusLoading},
	}
}

// Init restores the stored session. On a storage error the service still
// settles to Unauthenticated and the error is returned.
func (a *AuthService) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.store.Load(ctx)
	if err != nil {
		a.setUnauthenticated()
		return fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		a.setUnauthenticated()
		return nil
	}
	a.setAuthenticated(s.User, s.Token)
	a.log.Info(ctx, "session restored", "email", s.User.Email, "role", string(s.User.Role))
	return nil
}

// Register validates in, creates the account and signs it in.
func (a *AuthService) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	u, tok, err := a.backend.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := a.start(ctx, u, tok); err != nil {
		return nil, err
	}
	a.log.Info(ctx, "registered", "email", u.Email)
	return clone(u), nil
}

// Login signs in with creds.
func (a *AuthService) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	u, tok, err := a.backend.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := a.start(ctx, u, tok); err != nil {
		return nil, err
	}
	a.log.Info(ctx, "logged in", "email", u.Email, "role", string(u.Role))
	return clone(u), nil
}

// Logout ends the session. It succeeds when no one is signed in. The backend
// is told on a best-effort basis; its failures are only logged.
func (a *AuthService) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tok := a.state.Token
	a.setUnauthenticated()

	if tok != "" {
		if err := a.backend.Logout(ctx, tok); err != nil {
			a.log.Warn(ctx, "backend logout failed", "error", err.Error())
		}
	}

	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (a *AuthService) CurrentUser(ctx context.Context) *models.User {
	return clone(a.State(ctx).User)
}

func (a *AuthService) IsAuthenticated(ctx context.Context) bool {
	return a.State(ctx).Authenticated()
}

func (a *AuthService) IsAdmin(ctx context.Context) bool {
	return a.State(ctx).IsAdmin
}

// AuthHeader returns the Authorization header for the current token, or an
// empty header when no one is signed in.
func (a *AuthService) AuthHeader(ctx context.Context) http.Header {
	h := http.Header{}
	if st := a.State(ctx); st.Authenticated() {
		h.Set(common.AuthHeaderName, common.BearerValue(st.Token))
	}
	return h
}

// State returns the current session snapshot.
func (a *AuthService) State(ctx context.Context) SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Status == StatusAuthenticated {
		if _, err := a.verifier.Verify(a.state.Token); err != nil {
			a.expire(ctx, err)
		}
	}

	st := a.state
	st.User = clone(st.User)
	return st
}

// Promote changes the role of the account with the given email. Only a
// signed-in admin may do it, and not on their own account.
func (a *AuthService) Promote(ctx context.Context, email string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, role)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Status != StatusAuthenticated || !a.state.IsAdmin {
		return nil, common.ErrForbidden
	}
	if models.SameEmail(a.state.User.Email, email) {
		return nil, fmt.Errorf("%w: cannot change your own role", common.ErrValidation)
	}

	u, err := a.backend.SetRole(ctx, a.state.Token, email, role)
	if errors.Is(err, common.ErrTokenExpiredOrInvalid) {
		a.expire(ctx, err)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	a.log.Info(ctx, "role changed", "email", u.Email, "role", string(u.Role))
	return clone(u), nil
}

func (a *AuthService) start(ctx context.Context, u *models.User, tok string) error {
	if err := a.store.Save(ctx, u, tok); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	a.setAuthenticated(u, tok)
	return nil
}

// expire drops a session whose token no longer verifies. Must hold a.mu.
func (a *AuthService) expire(ctx context.Context, cause error) {
	a.log.Info(ctx, "session expired", "reason", cause.Error())
	a.setUnauthenticated()
	if err := a.store.Clear(ctx); err != nil {
		a.log.Error(ctx, "failed to clear expired session", "error", err.Error())
	}
}

func (a *AuthService) setAuthenticated(u *models.User, tok string) {
	a.state = SessionState{
		Status:  StatusAuthenticated,
		User:    clone(u),
		Token:   tok,
		IsAdmin: u.IsAdmin(),
	}
}

func (a *AuthService) setUnauthenticated() {
	a.state = SessionState{Status: StatusUnauthenticated}
}

func clone(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
