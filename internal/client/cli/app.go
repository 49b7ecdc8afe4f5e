package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/client/client"
	"github.com/dmitrijs2005/shopkeeper/internal/client/config"
	"github.com/dmitrijs2005/shopkeeper/internal/client/guard"
	"github.com/dmitrijs2005/shopkeeper/internal/client/registry"
	"github.com/dmitrijs2005/shopkeeper/internal/client/services"
	"github.com/dmitrijs2005/shopkeeper/internal/client/session"
	"github.com/dmitrijs2005/shopkeeper/internal/cryptox"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/dmitrijs2005/shopkeeper/internal/token"
)

// Mode is the connectivity shown in the prompt.
type Mode string

const (
	ModeLocal   Mode = "local"
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

const pingTimeout = 3 * time.Second

// authIface is the part of services.AuthService the CLI drives.
type authIface interface {
	Init(ctx context.Context) error
	Register(ctx context.Context, in models.RegisterInput) (*models.User, error)
	Login(ctx context.Context, creds models.Credentials) (*models.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) *models.User
	IsAuthenticated(ctx context.Context) bool
	State(ctx context.Context) services.SessionState
	AuthHeader(ctx context.Context) http.Header
	Promote(ctx context.Context, email string, role models.Role) (*models.User, error)
}

type navigator interface {
	Evaluate(ctx context.Context, path string) (guard.Decision, error)
	Resume(ctx context.Context, user *models.User) string
}

type pinger interface {
	Ping(ctx context.Context) error
}

// accountReader asks the server who a token belongs to.
type accountReader interface {
	Me(ctx context.Context, token string) (*models.User, error)
}

// App is the interactive storefront client.
type App struct {
	config *config.Config
	auth   authIface
	guard  navigator
	table  *guard.Table
	health  pinger
	account accountReader
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	closer  func() error

	mu      sync.Mutex
	mode    Mode
	current string
}

// NewApp opens local storage and wires the backend selected by c.Mode.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	db, err := client.InitDatabase(ctx, c.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	closers := []func() error{db.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	// The client cannot check server signatures, so every token is read
	// with the structural verifier.
	codec := token.NewFixedSecretCodec(c.TokenSecret)
	store := session.NewStore(db, codec, log)

	var (
		backend services.Backend
		health  pinger
		account accountReader
		mode    = ModeLocal
	)
	switch c.Mode {
	case config.ModeRemote:
		api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
		backend, account = api, api
		checker, err := client.NewHealthChecker(c.HealthAddr)
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		closers = append(closers, checker.Close)
		health, mode = checker, ModeOffline
	default:
		reg := registry.New(db, cryptox.NewPasswordHasher(0), registry.DefaultSeeds, log)
		backend = registry.NewAuthenticator(reg, codec, c.TokenTTL, c.AllowRoleSelection)
	}

	auth := services.NewAuthService(backend, store, codec, log)

	table, err := guard.NewTable(guard.DefaultRoutes)
	if err != nil {
		_ = closeAll()
		return nil, err
	}

	return &App{
		config:  c,
		auth:    auth,
		guard:   guard.New(table, auth, store, log),
		table:   table,
		health:  health,
		account: account,
		log:     log.With("module", "cli"),
		reader:  bufio.NewReader(in),
		out:     out,
		closer:  closeAll,
		mode:    mode,
	}, nil
}

// Run restores the session, opens the home page and serves the REPL until
// the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if err := a.auth.Init(ctx); err != nil {
		a.log.Error(ctx, "could not restore session", "error", err.Error())
	}

	if a.health != nil {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		a.checkOnline(ctx)
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}

	a.printf("Welcome to the storefront (type 'help' for commands)\n")
	if err := a.Go(ctx, guard.HomePath); err != nil {
		a.log.Error(ctx, "navigation failed", "error", err.Error())
	}

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

// Close releases storage and connections.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	return err
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsAuthenticated(context.Background())
}

func (a *App) getMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(ctx, "connectivity changed", "mode", string(mode))
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.health.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// StartOnlineStatusWatcher pings the server every interval and updates the
// connectivity mode until ctx is cancelled.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	s := ""
	if u := a.auth.CurrentUser(context.Background()); u != nil {
		s = u.Email + " [" + string(u.Role) + "] "
	}
	s += string(a.getMode())

	a.mu.Lock()
	current := a.current
	a.mu.Unlock()
	if current != "" {
		s += " " + current
	}
	return "(" + s + ")"
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
