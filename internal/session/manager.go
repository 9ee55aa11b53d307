// Package session drives the OAuth authorization-code grant for one role.
//
// A Manager is the sole mutator of its role's account slot and of the role's
// live API client token. It issues CSRF state values, validates callbacks,
// exchanges codes, resolves the identity and records the resulting account.
//
// Only one authorization attempt per role can be outstanding: issuing a new
// state invalidates the previous one.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/florianilch/jolt-auth/internal/account"
	"github.com/florianilch/jolt-auth/internal/credstore"
	"github.com/florianilch/jolt-auth/internal/scopes"
	"github.com/florianilch/jolt-auth/internal/twitch"
)

// DefaultTimeout bounds the network calls of one authorization.
const DefaultTimeout = 15 * time.Second

// Provider is the remote API a Manager authorizes against.
type Provider interface {
	AuthCodeURL(state, redirectURI, scope string) string
	Exchange(ctx context.Context, code, clientSecret, redirectURI string) (*twitch.Grant, error)
	ValidateToken(ctx context.Context, accessToken string) (*twitch.Validation, error)
	GetUser(ctx context.Context, accessToken, userID string) (*twitch.User, error)
	SetAccessToken(token string)
}

// Observer receives authorization outcomes, e.g. for metrics.
type Observer interface {
	AuthorizationStarted(role account.Role)
	AuthorizationFinished(role account.Role, err error)
	AccountsChanged(role account.Role, count int)
}

// Authorization is what the caller needs to send the user to the provider.
type Authorization struct {
	State  string
	Scopes string
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout bounds the exchange and lookup calls. Expiry surfaces as a
// *TokenExchangeError.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithObserver registers an observer for authorization outcomes.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// Manager orchestrates authorization for one role.
type Manager struct {
	role         account.Role
	store        *credstore.Store
	registry     *scopes.Registry
	provider     Provider
	clientSecret string
	timeout      time.Duration
	observer     Observer

	mu    sync.Mutex
	state string
}

// NewManager creates the Manager for role. There must be exactly one per role.
func NewManager(role account.Role, store *credstore.Store, registry *scopes.Registry, provider Provider, clientSecret string, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("missing credential store")
	}
	if registry == nil {
		return nil, fmt.Errorf("missing scope registry")
	}
	if provider == nil {
		return nil, fmt.Errorf("missing provider")
	}

	m := &Manager{
		role:         role,
		store:        store,
		registry:     registry,
		provider:     provider,
		clientSecret: clientSecret,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Role returns the role this manager serves.
func (m *Manager) Role() account.Role {
	return m.role
}

// Restore points the live client at the persisted active account.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := m.store.Slot(m.role)
	active, ok := slot.ActiveAccount()
	m.provider.SetAccessToken(active.AccessToken)
	if ok {
		slog.InfoContext(ctx, "restored active account", "role", m.role, "account", active.Name)
	}
	m.observe(slot)
}

// BeginAuthorization issues a new CSRF state, invalidating any earlier one,
// and returns it with the role's required scope string.
func (m *Manager) BeginAuthorization() (Authorization, error) {
	state, err := uuid.NewRandom()
	if err != nil {
		return Authorization{}, fmt.Errorf("generating state: %w", err)
	}

	m.mu.Lock()
	m.state = state.String()
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.AuthorizationStarted(m.role)
	}

	return Authorization{
		State:  state.String(),
		Scopes: m.registry.ScopeString(m.role),
	}, nil
}

// AuthorizeURL builds the provider URL for state, requesting the role's scopes.
func (m *Manager) AuthorizeURL(state, redirectURI string) string {
	return m.provider.AuthCodeURL(state, redirectURI, m.registry.ScopeString(m.role))
}

// ValidateState reports whether candidate is the most recently issued state.
// It does not consume the state.
func (m *Manager) ValidateState(candidate string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validLocked(candidate)
}

func (m *Manager) validLocked(candidate string) bool {
	return m.state != "" && candidate == m.state
}

// CompleteAuthorization finishes the grant started by BeginAuthorization.
//
// The state must match the latest issued one, otherwise ErrCSRFMismatch is
// returned and nothing changes. A matching state is consumed before any
// network call, so a code can be redeemed once per state. The new account
// replaces any same-named one, becomes active and is persisted.
//
// If the granted scopes do not cover the role's requirements, the account is
// still stored and returned together with an *InsufficientScopeError.
func (m *Manager) CompleteAuthorization(ctx context.Context, code, state, redirectURI string) (acct account.Account, err error) {
	defer func() {
		if m.observer != nil {
			m.observer.AuthorizationFinished(m.role, err)
		}
	}()

	m.mu.Lock()
	if !m.validLocked(state) {
		m.mu.Unlock()
		return account.Account{}, ErrCSRFMismatch
	}
	m.state = ""
	m.mu.Unlock()

	acct, err = m.resolve(ctx, code, redirectURI)
	if err != nil {
		return account.Account{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slot, err := m.store.Update(ctx, m.role, func(s *account.Slot) error {
		s.Upsert(acct)
		s.SetActive(acct.Name)
		return nil
	})
	if err != nil {
		return account.Account{}, fmt.Errorf("storing account %s: %w", acct.Name, err)
	}
	m.provider.SetAccessToken(acct.AccessToken)
	m.observe(slot)

	slog.InfoContext(ctx, "account authorized", "role", m.role, "account", acct.Name, "user_id", acct.UserID)

	if missing := m.registry.Missing(m.role, acct.Scopes); len(missing) > 0 {
		return acct, &InsufficientScopeError{Role: m.role, Missing: missing}
	}
	return acct, nil
}

// resolve exchanges code and builds the account. It holds no lock.
func (m *Manager) resolve(ctx context.Context, code, redirectURI string) (account.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	grant, err := m.provider.Exchange(ctx, code, m.clientSecret, redirectURI)
	if err != nil {
		return account.Account{}, &TokenExchangeError{Cause: err}
	}

	validation, err := m.provider.ValidateToken(ctx, grant.AccessToken)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return account.Account{}, &TokenExchangeError{Cause: err}
		}
		return account.Account{}, &UserLookupError{Cause: err}
	}

	user, err := m.provider.GetUser(ctx, grant.AccessToken, validation.UserID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return account.Account{}, &TokenExchangeError{Cause: err}
		}
		return account.Account{}, &UserLookupError{Login: validation.Login, UserID: validation.UserID, Cause: err}
	}

	granted := grant.Scopes
	if len(granted) == 0 {
		granted = validation.Scopes
	}
	if granted == nil {
		granted = []string{}
	}

	return account.Account{
		Name:         user.Login,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		UserID:       validation.UserID,
		Scopes:       slices.Clone(granted),
		AvatarURL:    user.ProfileImageURL,
	}, nil
}

// SetActiveAccount selects name as the role's active account and points the
// live client at its token. An empty name signs out. The client token only
// changes once the selection is saved.
func (m *Manager) SetActiveAccount(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var token string
	slot, err := m.store.Update(ctx, m.role, func(s *account.Slot) error {
		if name != "" {
			a, ok := s.Find(name)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownAccount, name)
			}
			token = a.AccessToken
		}
		s.SetActive(name)
		return nil
	})
	if err != nil {
		return err
	}

	m.provider.SetAccessToken(token)
	m.observe(slot)
	slog.InfoContext(ctx, "active account changed", "role", m.role, "account", name)
	return nil
}

// RemoveAccount deletes the named account. If it was active, the first
// remaining account (if any) becomes active and the live client follows it.
func (m *Manager) RemoveAccount(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var wasActive bool
	slot, err := m.store.Update(ctx, m.role, func(s *account.Slot) error {
		wasActive = s.Remove(name)
		return nil
	})
	if err != nil {
		return err
	}

	if wasActive {
		active, _ := slot.ActiveAccount()
		m.provider.SetAccessToken(active.AccessToken)
		slog.InfoContext(ctx, "active account removed", "role", m.role, "account", name, "now_active", slot.ActiveName())
	}
	m.observe(slot)
	return nil
}

// Accounts lists the role's accounts in authorization order.
func (m *Manager) Accounts() []account.Account {
	return m.store.Slot(m.role).Accounts
}

// Active returns the role's active account, if any.
func (m *Manager) Active() (account.Account, bool) {
	slot := m.store.Slot(m.role)
	return slot.ActiveAccount()
}

// RequiredScopes returns the scopes this role needs.
func (m *Manager) RequiredScopes() []string {
	return m.registry.RequiredScopes(m.role)
}

// CurrentScopeSufficiency reports whether granted covers the role's requirements.
func (m *Manager) CurrentScopeSufficiency(granted []string) bool {
	return m.registry.HasAllRequiredScopes(m.role, granted)
}

func (m *Manager) observe(slot account.Slot) {
	if m.observer != nil {
		m.observer.AccountsChanged(m.role, len(slot.Accounts))
	}
}
