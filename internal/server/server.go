// Package server exposes credential management to the UI over HTTP.
//
// It serves the OAuth redirect and callback endpoints for both roles and a
// small JSON API for listing, selecting and removing accounts. Tokens never
// leave the process through this API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/florianilch/jolt-auth/internal/account"
	"github.com/florianilch/jolt-auth/internal/session"
)

// SessionManager is the per-role authorization API the server drives.
type SessionManager interface {
	BeginAuthorization() (session.Authorization, error)
	AuthorizeURL(state, redirectURI string) string
	ValidateState(candidate string) bool
	CompleteAuthorization(ctx context.Context, code, state, redirectURI string) (account.Account, error)
	SetActiveAccount(ctx context.Context, name string) error
	RemoveAccount(ctx context.Context, name string) error
	Accounts() []account.Account
	Active() (account.Account, bool)
	RequiredScopes() []string
	CurrentScopeSufficiency(granted []string) bool
}

// Option configures a Server.
type Option func(*config)

type config struct {
	publicURL       string
	metrics         http.Handler
	logger          *slog.Logger
	providerTimeout time.Duration
}

// minWriteTimeout is the response deadline when the provider timeout is short.
const minWriteTimeout = 60 * time.Second

// writeMargin is added to the provider timeout to cover persisting the
// account and writing the response.
const writeMargin = 15 * time.Second

// WithPublicURL sets the externally reachable base URL used to build OAuth
// redirect URIs. It must match the redirect registered with Twitch.
func WithPublicURL(u string) Option {
	return func(c *config) {
		c.publicURL = u
	}
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(c *config) {
		c.metrics = h
	}
}

// WithProviderTimeout declares how long a callback may wait on Twitch. The
// server's write deadline is stretched to outlast it.
func WithProviderTimeout(d time.Duration) Option {
	return func(c *config) {
		c.providerTimeout = d
	}
}

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Server represents the credential management HTTP server.
type Server struct {
	handler      http.Handler
	server       *http.Server
	managers     map[account.Role]SessionManager
	publicURL    *url.URL
	writeTimeout time.Duration
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// New creates a Server for the given per-role managers. Every role needs a manager.
func New(managers map[account.Role]SessionManager, opts ...Option) (*Server, error) {
	cfg := &config{publicURL: "http://127.0.0.1:4000"}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	for _, role := range account.Roles {
		if managers[role] == nil {
			return nil, fmt.Errorf("missing session manager for role %s", role)
		}
	}

	publicURL, err := url.Parse(strings.TrimSuffix(cfg.publicURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid public URL: %w", err)
	}
	if publicURL.Scheme == "" || publicURL.Host == "" {
		return nil, fmt.Errorf("public URL must be absolute: %q", cfg.publicURL)
	}

	s := &Server{
		managers:     managers,
		publicURL:    publicURL,
		writeTimeout: max(minWriteTimeout, cfg.providerTimeout+writeMargin),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /auth/{role}/start", s.handleStart)
	mux.HandleFunc("GET /auth/{role}/callback", s.handleCallback)
	mux.HandleFunc("POST /api/roles/{role}/authorizations", s.handleCreateAuthorization)
	mux.HandleFunc("GET /api/roles/{role}", s.handleRole)
	mux.HandleFunc("GET /api/roles/{role}/accounts", s.handleListAccounts)
	mux.HandleFunc("PUT /api/roles/{role}/active", s.handleSetActive)
	mux.HandleFunc("DELETE /api/roles/{role}/accounts/{name}", s.handleRemoveAccount)
	if cfg.metrics != nil {
		mux.Handle("GET /metrics", cfg.metrics)
	}

	s.handler = applyMiddlewares(mux,
		Logging(cfg.logger),
		Recovery,
	)

	return s, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// RedirectURI returns the OAuth callback URL for role.
func (s *Server) RedirectURI(role account.Role) string {
	return s.publicURL.String() + "/auth/" + strings.ToLower(role.String()) + "/callback"
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	// Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.writeTimeout, // outlasts the provider round trips of a callback
		IdleTimeout:       90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
