package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/jolt-auth/internal/account"
	"github.com/florianilch/jolt-auth/internal/credstore"
	"github.com/florianilch/jolt-auth/internal/observability"
	"github.com/florianilch/jolt-auth/internal/scopes"
	"github.com/florianilch/jolt-auth/internal/secretstore"
	"github.com/florianilch/jolt-auth/internal/server"
	"github.com/florianilch/jolt-auth/internal/session"
	"github.com/florianilch/jolt-auth/internal/twitch"
)

// App orchestrates the credential store, the per-role session managers and
// the HTTP server.
type App struct {
	cfg       *Config
	store     *credstore.Store
	secrets   secretstore.SecretStore
	secretErr error
	registry  *scopes.Registry
	metrics   *observability.Metrics
	clients   map[account.Role]*twitch.Client
	managers  map[account.Role]*session.Manager
	server    *server.Server
}

// New loads the credentials document and wires one session manager per role.
// A missing or unreadable document is fatal, as is a document already owned
// by another process (credstore.ErrLocked). A missing client secret is not:
// account management keeps working, and Start reports it.
//
// The App owns the document until Close.
func New(ctx context.Context, cfg *Config) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := credstore.Load(ctx, cfg.Store.File)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = store.Close()
		}
	}()

	secrets, err := cfg.Secret.NewSecretStore(store)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret store: %w", err)
	}

	a := &App{
		cfg:      cfg,
		store:    store,
		secrets:  secrets,
		registry: scopes.NewRegistry(scopes.Defaults()...),
		clients:  make(map[account.Role]*twitch.Client, len(account.Roles)),
		managers: make(map[account.Role]*session.Manager, len(account.Roles)),
	}

	clientSecret, err := secrets.Read(ctx)
	if err != nil {
		a.secretErr = fmt.Errorf("client secret unavailable: %w", err)
		slog.WarnContext(ctx, "client secret unavailable, authorization disabled", "storage", cfg.Secret.Storage, "error", err)
	}

	var serverOpts []server.Option
	managerOpts := []session.Option{session.WithTimeout(cfg.Twitch.Timeout)}
	if cfg.Metrics.Enabled {
		a.metrics = observability.NewMetrics()
		managerOpts = append(managerOpts, session.WithObserver(a.metrics))
		serverOpts = append(serverOpts, server.WithMetrics(a.metrics.Handler()))
	}

	handlers := make(map[account.Role]server.SessionManager, len(account.Roles))
	for _, role := range account.Roles {
		client, err := twitch.NewClient(store.ClientID(),
			twitch.WithEndpoints(cfg.Twitch.Endpoints()),
			twitch.WithTimeout(cfg.Twitch.Timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", role, err)
		}

		m, err := session.NewManager(role, store, a.registry, client, clientSecret, managerOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s session manager: %w", role, err)
		}
		m.Restore(ctx)

		a.clients[role] = client
		a.managers[role] = m
		handlers[role] = m
	}

	serverOpts = append(serverOpts,
		server.WithPublicURL(cfg.Server.PublicURL),
		server.WithProviderTimeout(cfg.Twitch.Timeout),
	)
	a.server, err = server.New(handlers, serverOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return a, nil
}

// Close releases the credentials document.
func (a *App) Close() error {
	return a.store.Close()
}

// Manager returns the session manager for role.
func (a *App) Manager(role account.Role) *session.Manager {
	return a.managers[role]
}

// Client returns the live Twitch client for role. Its bearer token follows
// the role's active account.
func (a *App) Client(role account.Role) *twitch.Client {
	return a.clients[role]
}

// Registry returns the scope registry.
func (a *App) Registry() *scopes.Registry {
	return a.registry
}

// Store returns the credential store.
func (a *App) Store() *credstore.Store {
	return a.store
}

// Secrets returns the configured client secret backend.
func (a *App) Secrets() secretstore.SecretStore {
	return a.secrets
}

// Handler returns the HTTP handler, e.g. for tests.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	if a.secretErr != nil {
		return a.secretErr
	}

	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting server", "address", address, "public_url", a.cfg.Server.PublicURL)
	serverErrCh, err := a.server.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.server.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "server runtime error", "error", err)
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	for _, role := range account.Roles {
		slog.InfoContext(gCtx, "authorization endpoint ready",
			"role", role,
			"start", a.cfg.Server.PublicURL+"/auth/"+strings.ToLower(role.String())+"/start",
			"redirect_uri", a.server.RedirectURI(role),
		)
	}
	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
