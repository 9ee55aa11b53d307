package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/florianilch/jolt-auth/internal/account"
	"github.com/florianilch/jolt-auth/internal/credstore"
	"github.com/florianilch/jolt-auth/internal/session"
)

// AccountView is an account as shown to the UI. Tokens are omitted.
type AccountView struct {
	Name             string   `json:"name"`
	UserID           string   `json:"uid"`
	Scopes           []string `json:"scopes"`
	AvatarURL        string   `json:"avatarUrl"`
	Active           bool     `json:"active"`
	ScopesSufficient bool     `json:"scopes_sufficient"`
}

// AuthorizationResponse is returned when an authorization attempt begins.
type AuthorizationResponse struct {
	State        string `json:"state"`
	Scopes       string `json:"scopes"`
	AuthorizeURL string `json:"authorize_url"`
}

// CallbackResponse is returned after a completed authorization.
type CallbackResponse struct {
	Account       AccountView `json:"account"`
	MissingScopes []string    `json:"missing_scopes,omitempty"`
}

// RoleResponse summarizes a role's sign-in status.
type RoleResponse struct {
	Role             string   `json:"role"`
	Active           *string  `json:"active"`
	RequiredScopes   []string `json:"required_scopes"`
	ScopesSufficient bool     `json:"scopes_sufficient"`
}

// SetActiveRequest selects an account; a null name signs the role out.
type SetActiveRequest struct {
	Name *string `json:"name"`
}

// manager resolves the {role} path value. It writes the error response and
// returns false if the role is unknown.
func (s *Server) manager(w http.ResponseWriter, r *http.Request) (account.Role, SessionManager, bool) {
	role, err := account.ParseRole(r.PathValue("role"))
	if err != nil {
		writeJSONError(r.Context(), w, err.Error(), http.StatusNotFound)
		return 0, nil, false
	}
	return role, s.managers[role], true
}

func (s *Server) view(m SessionManager, a account.Account, activeName string) AccountView {
	return AccountView{
		Name:             a.Name,
		UserID:           a.UserID,
		Scopes:           a.Scopes,
		AvatarURL:        a.AvatarURL,
		Active:           a.Name == activeName,
		ScopesSufficient: m.CurrentScopeSufficiency(a.Scopes),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleStart begins an authorization and redirects the browser to Twitch.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	role, m, ok := s.manager(w, r)
	if !ok {
		return
	}

	auth, err := m.BeginAuthorization()
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to begin authorization", "role", role, "error", err)
		writeJSONError(r.Context(), w, "could not begin authorization", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, m.AuthorizeURL(auth.State, s.RedirectURI(role)), http.StatusFound)
}

// handleCreateAuthorization begins an authorization and returns the URL
// instead of redirecting, for UIs that open the provider page themselves.
func (s *Server) handleCreateAuthorization(w http.ResponseWriter, r *http.Request) {
	role, m, ok := s.manager(w, r)
	if !ok {
		return
	}

	auth, err := m.BeginAuthorization()
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to begin authorization", "role", role, "error", err)
		writeJSONError(r.Context(), w, "could not begin authorization", http.StatusInternalServerError)
		return
	}

	writeJSON(r.Context(), w, AuthorizationResponse{
		State:        auth.State,
		Scopes:       auth.Scopes,
		AuthorizeURL: m.AuthorizeURL(auth.State, s.RedirectURI(role)),
	}, http.StatusCreated)
}

// handleCallback completes an authorization from the provider redirect.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	role, m, ok := s.manager(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		slog.WarnContext(ctx, "authorization denied by provider", "role", role, "error", e, "description", q.Get("error_description"))
		writeJSONError(ctx, w, "authorization denied: "+e, http.StatusBadRequest)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		writeJSONError(ctx, w, "missing code or state", http.StatusBadRequest)
		return
	}

	// Reject forged callbacks before the code is exchanged
	if !m.ValidateState(state) {
		slog.WarnContext(ctx, "rejected callback with unknown state", "role", role)
		writeJSONError(ctx, w, session.ErrCSRFMismatch.Error(), http.StatusBadRequest)
		return
	}

	acct, err := m.CompleteAuthorization(ctx, code, state, s.RedirectURI(role))

	var scopeErr *session.InsufficientScopeError
	switch {
	case err == nil:
	case errors.As(err, &scopeErr):
		slog.WarnContext(ctx, "account lacks required scopes", "role", role, "account", acct.Name, "missing", scopeErr.Missing)
	default:
		s.writeAuthorizationError(w, r, role, err)
		return
	}

	resp := CallbackResponse{Account: s.view(m, acct, acct.Name)}
	if scopeErr != nil {
		resp.MissingScopes = scopeErr.Missing
	}
	writeJSON(ctx, w, resp, http.StatusOK)
}

func (s *Server) writeAuthorizationError(w http.ResponseWriter, r *http.Request, role account.Role, err error) {
	ctx := r.Context()

	var (
		exchangeErr *session.TokenExchangeError
		lookupErr   *session.UserLookupError
		saveErr     *credstore.StoreSaveError
	)

	switch {
	case errors.Is(err, session.ErrCSRFMismatch):
		writeJSONError(ctx, w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &exchangeErr), errors.As(err, &lookupErr):
		slog.WarnContext(ctx, "authorization failed", "role", role, "error", err)
		writeJSONError(ctx, w, err.Error(), http.StatusBadGateway)
	case errors.As(err, &saveErr):
		slog.ErrorContext(ctx, "authorized account not saved", "role", role, "error", err)
		writeJSONError(ctx, w, "account could not be saved", http.StatusInternalServerError)
	default:
		slog.ErrorContext(ctx, "authorization failed", "role", role, "error", err)
		writeJSONError(ctx, w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) handleRole(w http.ResponseWriter, r *http.Request) {
	role, m, ok := s.manager(w, r)
	if !ok {
		return
	}

	resp := RoleResponse{
		Role:           role.String(),
		RequiredScopes: m.RequiredScopes(),
	}
	if active, ok := m.Active(); ok {
		resp.Active = &active.Name
		resp.ScopesSufficient = m.CurrentScopeSufficiency(active.Scopes)
	}

	writeJSON(r.Context(), w, resp, http.StatusOK)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	_, m, ok := s.manager(w, r)
	if !ok {
		return
	}

	active, _ := m.Active()
	accounts := m.Accounts()
	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, s.view(m, a, active.Name))
	}

	writeJSON(r.Context(), w, views, http.StatusOK)
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	role, m, ok := s.manager(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req SetActiveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSONError(ctx, w, "invalid request body", http.StatusBadRequest)
		return
	}

	var name string
	if req.Name != nil {
		name = *req.Name
	}

	if err := m.SetActiveAccount(ctx, name); err != nil {
		s.writeMutationError(w, r, role, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	role, m, ok := s.manager(w, r)
	if !ok {
		return
	}

	if err := m.RemoveAccount(r.Context(), r.PathValue("name")); err != nil {
		s.writeMutationError(w, r, role, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, role account.Role, err error) {
	ctx := r.Context()

	if errors.Is(err, session.ErrUnknownAccount) {
		writeJSONError(ctx, w, err.Error(), http.StatusNotFound)
		return
	}

	slog.ErrorContext(ctx, "account change not saved", "role", role, "error", err)
	writeJSONError(ctx, w, "account change could not be saved", http.StatusInternalServerError)
}
