// Package scopes declares which Twitch OAuth scopes each role needs.
//
// Operations register the scopes they use as static Requirement values. The
// registry aggregates them per role once, at construction, so the scope set
// always covers every registered capability rather than only those invoked
// so far.
package scopes

import (
	"slices"
	"strings"

	"github.com/florianilch/jolt-auth/internal/account"
)

// Requirement records that an operation needs scope on the given role's token.
type Requirement struct {
	Operation string
	Scope     string
	Role      account.Role
}

// Registry holds the aggregated scope sets per role.
type Registry struct {
	requirements []Requirement
	byRole       map[account.Role][]string
}

// NewRegistry aggregates reqs into per-role scope sets. Order and duplicates
// in reqs do not affect the result.
func NewRegistry(reqs ...Requirement) *Registry {
	sets := make(map[account.Role]map[string]struct{}, len(account.Roles))
	for _, r := range reqs {
		if sets[r.Role] == nil {
			sets[r.Role] = make(map[string]struct{})
		}
		sets[r.Role][r.Scope] = struct{}{}
	}

	byRole := make(map[account.Role][]string, len(account.Roles))
	for _, role := range account.Roles {
		scopes := make([]string, 0, len(sets[role]))
		for s := range sets[role] {
			scopes = append(scopes, s)
		}
		slices.Sort(scopes)
		byRole[role] = scopes
	}

	return &Registry{
		requirements: slices.Clone(reqs),
		byRole:       byRole,
	}
}

// RequiredScopes returns the sorted union of scopes registered for role.
func (r *Registry) RequiredScopes(role account.Role) []string {
	return slices.Clone(r.byRole[role])
}

// ScopeString returns the required scopes space-joined, as used in the
// provider's authorize URL.
func (r *Registry) ScopeString(role account.Role) string {
	return strings.Join(r.byRole[role], " ")
}

// Missing returns the required scopes for role that granted does not contain.
func (r *Registry) Missing(role account.Role, granted []string) []string {
	var missing []string
	for _, s := range r.byRole[role] {
		if !slices.Contains(granted, s) {
			missing = append(missing, s)
		}
	}
	return missing
}

// HasAllRequiredScopes reports whether granted is a superset of the role's
// required scopes.
func (r *Registry) HasAllRequiredScopes(role account.Role, granted []string) bool {
	return len(r.Missing(role, granted)) == 0
}

// Operations returns the operations that require scope on role's token.
func (r *Registry) Operations(role account.Role, scope string) []string {
	var ops []string
	for _, req := range r.requirements {
		if req.Role == role && req.Scope == scope && !slices.Contains(ops, req.Operation) {
			ops = append(ops, req.Operation)
		}
	}
	return ops
}
