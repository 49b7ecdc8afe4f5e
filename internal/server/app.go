// Package server wires the auth server together: Postgres repositories, the
// user service, the HTTP API, the gRPC health service and the revocation
// purge job. Run blocks until SIGINT/SIGTERM or a component fails.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/shopkeeper/internal/cryptox"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/config"
	"github.com/dmitrijs2005/shopkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shopkeeper/internal/server/scheduler"
	"github.com/dmitrijs2005/shopkeeper/internal/server/services"
	"github.com/dmitrijs2005/shopkeeper/internal/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/shopkeeper/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
}

// NewApp connects to the database, applies migrations and bootstraps the
// admin account when one is configured.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "shopkeeper"),
	)

	us := services.NewUserService(db, rm, token.NewHMACCodec([]byte(c.SecretKey)),
		cryptox.NewPasswordHasher(c.BcryptCost), c.TokenTTL, logger)

	if c.AdminEmail != "" {
		if err := us.EnsureAdmin(ctx, c.AdminName, c.AdminEmail, c.AdminPassword); err != nil {
			return nil, fmt.Errorf("admin bootstrap: %w", err)
		}
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		metrics:     metrics.New(registry),
		registry:    registry,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(app.userService, httpapi.RouterConfig{
		AllowedOrigins: app.config.AllowedOrigins,
		Gatherer:       app.registry,
		Metrics:        app.metrics,
		Logger:         app.logger.With("module", "http"),
	})

	s := httpapi.NewServer(app.config.HTTPAddr, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger)
	s.SetServing(true)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startPurger(ctx context.Context, cancelFunc context.CancelFunc) {
	s, err := scheduler.New("revocation_purge", app.config.PurgeSchedule, app.purgeRevocations, app.logger)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}
	s.Run(ctx)
}

func (app *App) purgeRevocations(ctx context.Context) error {
	n, err := app.userService.PurgeRevocations(ctx)
	app.metrics.Purged(n, err)
	if err != nil {
		return err
	}
	if n > 0 {
		app.logger.Info(ctx, "expired revocations purged", "count", n)
	}
	return nil
}

// Run starts all components and blocks until they have stopped. The database
// is closed on return.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for _, start := range []func(context.Context, context.CancelFunc){
		app.startHTTPServer,
		app.startGRPCServer,
		app.startPurger,
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
