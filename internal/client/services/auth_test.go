package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/client/client"
	"github.com/dmitrijs2005/shopkeeper/internal/client/registry"
	"github.com/dmitrijs2005/shopkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shopkeeper/internal/client/session"
	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/cryptox"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/dmitrijs2005/shopkeeper/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ---- helpers ----

type fixture struct {
	db    *sql.DB
	store *session.Store
	codec *token.FixedSecretCodec
	clock *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &fakeClock{now: time.Now()}
	codec := token.NewFixedSecretCodec("").WithClock(clock.Now)
	return &fixture{
		db:    db,
		store: session.NewStore(db, codec, logging.Nop()),
		codec: codec,
		clock: clock,
	}
}

func (f *fixture) service(b Backend) *AuthService {
	return NewAuthService(b, f.store, f.codec, logging.Nop())
}

// localService wires the service to a real local registry.
func (f *fixture) localService(t *testing.T) *AuthService {
	t.Helper()
	reg := registry.New(f.db, cryptox.NewPasswordHasher(bcrypt.MinCost), registry.DefaultSeeds, logging.Nop())
	auth := registry.NewAuthenticator(reg, f.codec, 24*time.Hour, false)
	s := f.service(auth)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func (f *fixture) keyExists(t *testing.T, key string) bool {
	t.Helper()
	v, err := metadata.NewSQLiteRepository(f.db).Get(context.Background(), key)
	require.NoError(t, err)
	return v != nil
}

// ---- fake backend ----

type fakeBackend struct {
	user *models.User
	tok  string

	RegisterErr error
	LoginErr    error
	LogoutErr   error
	SetRoleErr  error

	LogoutCalls  int
	LastSetRole  string
	LastRegister models.RegisterInput
}

func (b *fakeBackend) Register(_ context.Context, in models.RegisterInput) (*models.User, string, error) {
	b.LastRegister = in
	if b.RegisterErr != nil {
		return nil, "", b.RegisterErr
	}
	return b.user, b.tok, nil
}

func (b *fakeBackend) Login(context.Context, models.Credentials) (*models.User, string, error) {
	if b.LoginErr != nil {
		return nil, "", b.LoginErr
	}
	return b.user, b.tok, nil
}

func (b *fakeBackend) Logout(context.Context, string) error {
	b.LogoutCalls++
	return b.LogoutErr
}

func (b *fakeBackend) SetRole(_ context.Context, tok, email string, role models.Role) (*models.User, error) {
	b.LastSetRole = tok
	if b.SetRoleErr != nil {
		return nil, b.SetRoleErr
	}
	return &models.User{ID: "x", Email: email, Role: role}, nil
}

// ---- tests ----

func TestAuthService_StartsLoading(t *testing.T) {
	f := newFixture(t)
	s := f.service(&fakeBackend{})

	assert.Equal(t, StatusLoading, s.State(context.Background()).Status)
	assert.False(t, s.IsAuthenticated(context.Background()))

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, StatusUnauthenticated, s.State(context.Background()).Status)
}

func TestAuthService_LoginAndRestore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.localService(t)

	u, err := s.Login(ctx, models.Credentials{Email: "admin@gmail.com", Password: "admin123"})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.True(t, s.IsAuthenticated(ctx))
	assert.True(t, s.IsAdmin(ctx))
	assert.Equal(t, "admin@gmail.com", s.CurrentUser(ctx).Email)

	// a fresh service over the same storage picks the session up
	again := f.localService(t)
	assert.True(t, again.IsAuthenticated(ctx))
	assert.Equal(t, u.ID, again.CurrentUser(ctx).ID)
}

func TestAuthService_LoginResultHasNoPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.localService(t)

	u, err := s.Login(ctx, models.Credentials{Email: "user@gmail.com", Password: "user@123"})
	require.NoError(t, err)

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(string(b)), "password")

	raw, err := metadata.NewSQLiteRepository(f.db).Get(ctx, session.KeyUser)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(string(raw)), "password")
}

func TestAuthService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.localService(t)

	_, err := s.Login(ctx, models.Credentials{Email: "admin@gmail.com", Password: "wrong"})
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.False(t, s.IsAuthenticated(ctx))

	_, err = s.Login(ctx, models.Credentials{})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.localService(t)

	u, err := s.Register(ctx, models.RegisterInput{
		Name: " Ann Lee ", Email: "ann@example.com", Password: "Secret1!", ConfirmPassword: "Secret1!", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", u.Name)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.True(t, s.IsAuthenticated(ctx))
	assert.False(t, s.IsAdmin(ctx))
}

func TestAuthService_RegisterDuplicateKeepsRegistry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.localService(t)

	before, err := metadata.NewSQLiteRepository(f.db).Get(ctx, registry.KeyUsers)
	require.NoError(t, err)

	_, err = s.Register(ctx, models.RegisterInput{Name: "Someone", Email: "USER@gmail.com", Password: "Secret1!"})
	require.ErrorIs(t, err, common.ErrDuplicateEmail)
	assert.False(t, s.IsAuthenticated(ctx))

	after, err := metadata.NewSQLiteRepository(f.db).Get(ctx, registry.KeyUsers)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	b := &fakeBackend{}
	s := newFixture(t).service(b)

	_, err := s.Register(context.Background(), models.RegisterInput{Name: "A", Email: "bad", Password: "short"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.ErrorIs(t, err, common.ErrValidation)
	assert.NotEmpty(t, verr.Fields)
	assert.Empty(t, b.LastRegister.Email, "backend is not called")
}

func TestAuthService_LogoutClearsBothKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := &fakeBackend{LogoutErr: errors.New("offline")}
	s := f.service(b)
	require.NoError(t, s.Init(ctx))

	// nothing to log out from
	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, 0, b.LogoutCalls)

	u := &models.User{ID: "u-1", Email: "ann@example.com", Role: models.RoleUser}
	b.user = u
	b.tok, _ = f.codec.Issue(token.ClaimsFor(u), time.Hour)
	_, err := s.Login(ctx, models.Credentials{Email: "ann@example.com", Password: "x"})
	require.NoError(t, err)
	require.True(t, f.keyExists(t, session.KeyToken))

	require.NoError(t, s.Logout(ctx), "backend failure is ignored")
	assert.Equal(t, 1, b.LogoutCalls)
	assert.False(t, f.keyExists(t, session.KeyUser))
	assert.False(t, f.keyExists(t, session.KeyToken))
	assert.False(t, s.IsAuthenticated(ctx))
	assert.Empty(t, s.AuthHeader(ctx))

	require.NoError(t, s.Logout(ctx))
}

func TestAuthService_AuthHeader(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.localService(t)

	assert.Empty(t, s.AuthHeader(ctx).Get("Authorization"))

	_, err := s.Login(ctx, models.Credentials{Email: "user@gmail.com", Password: "user@123"})
	require.NoError(t, err)

	h := s.AuthHeader(ctx).Get("Authorization")
	require.True(t, strings.HasPrefix(h, "Bearer "))
	assert.Equal(t, s.State(ctx).Token, strings.TrimPrefix(h, "Bearer "))
}

func TestAuthService_ExpiredSessionSelfHeals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.localService(t)

	_, err := s.Login(ctx, models.Credentials{Email: "user@gmail.com", Password: "user@123"})
	require.NoError(t, err)
	require.True(t, s.IsAuthenticated(ctx))

	f.clock.Advance(25 * time.Hour)

	assert.False(t, s.IsAuthenticated(ctx))
	assert.Nil(t, s.CurrentUser(ctx))
	assert.False(t, f.keyExists(t, session.KeyToken))
	assert.False(t, f.keyExists(t, session.KeyUser))
}

func TestAuthService_InitDropsExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := &models.User{ID: "u-1", Email: "ann@example.com", Role: models.RoleUser}
	tok, err := f.codec.Issue(token.ClaimsFor(u), -time.Second)
	require.NoError(t, err)
	require.NoError(t, f.store.Save(ctx, u, tok))

	s := f.service(&fakeBackend{})
	require.NoError(t, s.Init(ctx))
	assert.Equal(t, StatusUnauthenticated, s.State(ctx).Status)
	assert.False(t, f.keyExists(t, session.KeyUser))
}

func TestAuthService_CurrentUserIsACopy(t *testing.T) {
	ctx := context.Background()
	s := newFixture(t).localService(t)
	_, err := s.Login(ctx, models.Credentials{Email: "user@gmail.com", Password: "user@123"})
	require.NoError(t, err)

	u := s.CurrentUser(ctx)
	u.Role = models.RoleAdmin
	assert.False(t, s.IsAdmin(ctx))
	assert.Equal(t, models.RoleUser, s.CurrentUser(ctx).Role)
}

func TestAuthService_Promote(t *testing.T) {
	ctx := context.Background()
	s := newFixture(t).localService(t)

	_, err := s.Promote(ctx, "user@gmail.com", models.RoleAdmin)
	require.ErrorIs(t, err, common.ErrForbidden, "anonymous")

	_, err = s.Login(ctx, models.Credentials{Email: "user@gmail.com", Password: "user@123"})
	require.NoError(t, err)
	_, err = s.Promote(ctx, "user@gmail.com", models.RoleAdmin)
	require.ErrorIs(t, err, common.ErrForbidden, "plain user")

	_, err = s.Login(ctx, models.Credentials{Email: "admin@gmail.com", Password: "admin123"})
	require.NoError(t, err)

	_, err = s.Promote(ctx, "admin@gmail.com", models.RoleUser)
	require.ErrorIs(t, err, common.ErrValidation, "own account")

	_, err = s.Promote(ctx, "user@gmail.com", models.Role("root"))
	require.ErrorIs(t, err, common.ErrValidation)

	u, err := s.Promote(ctx, "user@gmail.com", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
}

func TestAuthService_PromoteWithRejectedToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := &models.User{ID: "a-1", Email: "boss@example.com", Role: models.RoleAdmin}
	tok, err := f.codec.Issue(token.ClaimsFor(admin), time.Hour)
	require.NoError(t, err)

	b := &fakeBackend{user: admin, tok: tok, SetRoleErr: common.ErrTokenExpiredOrInvalid}
	s := f.service(b)
	_, err = s.Login(ctx, models.Credentials{Email: "boss@example.com", Password: "x"})
	require.NoError(t, err)

	_, err = s.Promote(ctx, "user@gmail.com", models.RoleAdmin)
	require.ErrorIs(t, err, common.ErrTokenExpiredOrInvalid)
	assert.Equal(t, tok, b.LastSetRole)
	assert.False(t, s.IsAuthenticated(ctx))
}

func TestAuthService_NetworkFailureSurfaces(t *testing.T) {
	b := &fakeBackend{LoginErr: client.ErrUnavailable}
	s := newFixture(t).service(b)

	_, err := s.Login(context.Background(), models.Credentials{Email: "a@b.co", Password: "x"})
	require.ErrorIs(t, err, common.ErrNetworkFailure)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "unauthenticated", StatusUnauthenticated.String())
	assert.Equal(t, "authenticated", StatusAuthenticated.String())
	assert.Equal(t, "Status(7)", Status(7).String())
}
