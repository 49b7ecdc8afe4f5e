package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/client/config"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StoragePath = filepath.Join(t.TempDir(), "storefront.db")
	return cfg
}

// runApp runs one interactive session over the given input lines and
// returns everything printed.
func runApp(t *testing.T, cfg *config.Config, lines ...string) string {
	t.Helper()
	captureOutput(t)
	stubTerminal(t, false, "", nil)

	var out bytes.Buffer
	app, err := NewApp(context.Background(), cfg, logging.Nop(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	require.NoError(t, err)
	require.NoError(t, app.Run(context.Background()))
	return out.String()
}

func TestApp_StartsOnLoginPage(t *testing.T) {
	out := runApp(t, testConfig(t), "exit")

	assert.Contains(t, out, "Welcome to the storefront")
	assert.Contains(t, out, "Please sign in to continue to /")
	assert.Contains(t, out, "== Login (/login) ==")
}

func TestApp_UserIsSentBackToRequestedPage(t *testing.T) {
	out := runApp(t, testConfig(t),
		"go /cart",
		"login", "user@gmail.com", "user@123",
		"go /admin/dashboard",
		"go /orders",
		"go /nowhere",
		"exit",
	)

	assert.Contains(t, out, "Please sign in to continue to /cart")
	assert.Contains(t, out, "Welcome back, User!")
	assert.Contains(t, out, "== Cart (/cart) ==")
	assert.Contains(t, out, "Your account cannot open /admin/dashboard")
	assert.Contains(t, out, "== Unauthorized (/unauthorized) ==")
	assert.Contains(t, out, "== Orders (/orders) ==")
	assert.Contains(t, out, "Page not found: /nowhere")
}

func TestApp_AdminLandsOnDashboard(t *testing.T) {
	out := runApp(t, testConfig(t),
		"go /cart",
		"login", "admin@gmail.com", "admin123",
		"go /cart",
		"exit",
	)

	assert.Contains(t, out, "== Admin dashboard (/admin/dashboard) ==")
	assert.Contains(t, out, "== Cart (/cart) ==", "admins may open user pages")
}

func TestApp_LoginFailureStaysPut(t *testing.T) {
	out := runApp(t, testConfig(t),
		"login", "user@gmail.com", "wrong",
		"whoami",
		"exit",
	)

	assert.Contains(t, out, "Login failed: invalid email or password")
	assert.Contains(t, out, "Not signed in (unauthenticated).")
}

func TestApp_RegisterValidatesThenSignsIn(t *testing.T) {
	out := runApp(t, testConfig(t),
		"register", "A", "not-an-email", "short", "short",
		"register", "Ann Lee", "user@GMAIL.com", "Secret1!", "Secret1!",
		"register", "Ann Lee", "ann@example.com", "Secret1!", "Secret1!",
		"whoami",
		"go /login",
		"exit",
	)

	assert.Contains(t, out, "Registration failed: name must be 2-50 letters or spaces")
	assert.Contains(t, out, "Registration failed: an account with this email already exists")
	assert.Contains(t, out, "Welcome, Ann Lee!")
	assert.Contains(t, out, "Ann Lee <ann@example.com>")
	assert.Contains(t, out, "role:    user")
	assert.Contains(t, out, "header:  Authorization: Bearer ")
	assert.Contains(t, out, "== Home (/) ==", "signed-in visitor is bounced off /login")
}

func TestApp_RoleSelectionWhenAllowed(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowRoleSelection = true

	out := runApp(t, cfg,
		"register", "Boss", "boss@example.com", "Secret1!", "Secret1!", "admin",
		"whoami",
		"exit",
	)
	assert.Contains(t, out, "role:    admin")
	assert.Contains(t, out, "== Admin dashboard (/admin/dashboard) ==")
}

func TestApp_SessionSurvivesRestartUntilLogout(t *testing.T) {
	cfg := testConfig(t)

	runApp(t, cfg, "login", "user@gmail.com", "user@123", "exit")

	out := runApp(t, cfg, "whoami", "logout", "whoami", "exit")
	assert.Contains(t, out, "== Home (/) ==", "restored session opens home directly")
	assert.Contains(t, out, "User <user@gmail.com>")
	assert.Contains(t, out, "Signed out.")
	assert.Contains(t, out, "Not signed in (unauthenticated).")

	out = runApp(t, cfg, "whoami", "exit")
	assert.Contains(t, out, "Not signed in")
}

func TestApp_ExpiredSessionIsNotRestored(t *testing.T) {
	cfg := testConfig(t)
	cfg.TokenTTL = time.Second

	runApp(t, cfg, "login", "user@gmail.com", "user@123", "exit")
	time.Sleep(2100 * time.Millisecond)

	out := runApp(t, cfg, "whoami", "exit")
	assert.Contains(t, out, "Not signed in")
}

func TestApp_Promote(t *testing.T) {
	cfg := testConfig(t)

	out := runApp(t, cfg,
		"login", "admin@gmail.com", "admin123",
		"promote user@gmail.com",
		"promote user@gmail.com root",
		"promote ghost@gmail.com admin",
		"promote user@gmail.com admin",
		"logout",
		"login", "user@gmail.com", "user@123",
		"go /admin/orders",
		"exit",
	)

	assert.Contains(t, out, "Usage: promote <email> <user|admin>")
	assert.Contains(t, out, `unknown role "root"`)
	assert.Contains(t, out, "Role change failed: no such account")
	assert.Contains(t, out, "user@gmail.com is now admin.")
	assert.Contains(t, out, "== Admin orders (/admin/orders) ==")
}

func TestApp_Routes(t *testing.T) {
	out := runApp(t, testConfig(t), "routes", "exit")
	assert.Contains(t, out, "/category/{slug}")
	assert.Contains(t, out, "/admin/products")
}

type fakePinger struct {
	err   atomic.Value
	calls atomic.Int32
}

func (p *fakePinger) Ping(context.Context) error {
	p.calls.Add(1)
	if err, ok := p.err.Load().(error); ok {
		return err
	}
	return nil
}

func TestApp_ConnectivityWatcher(t *testing.T) {
	p := &fakePinger{}
	a := &App{health: p, log: logging.Nop(), mode: ModeOffline}

	a.checkOnline(context.Background())
	assert.Equal(t, ModeOnline, a.getMode())

	p.err.Store(errors.New("down"))
	a.checkOnline(context.Background())
	assert.Equal(t, ModeOffline, a.getMode())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls.Load() >= 4 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestApp_RemoteModeStartsOffline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = config.ModeRemote
	cfg.HealthAddr = "127.0.0.1:1"

	var out bytes.Buffer
	app, err := NewApp(context.Background(), cfg, logging.Nop(), strings.NewReader(""), &out)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, ModeOffline, app.getMode())
	assert.Contains(t, app.getStatus(), "offline")
}
