package scopes

import (
	"slices"
	"testing"

	"github.com/florianilch/jolt-auth/internal/account"
)

func TestRequiredScopesIsUnionIndependentOfOrder(t *testing.T) {
	reqs := []Requirement{
		{Operation: "send", Scope: "chat:edit", Role: account.ChatBot},
		{Operation: "read", Scope: "chat:read", Role: account.ChatBot},
		{Operation: "read-again", Scope: "chat:read", Role: account.ChatBot},
		{Operation: "bits", Scope: "bits:read", Role: account.Streamer},
	}
	reversed := slices.Clone(reqs)
	slices.Reverse(reversed)

	a := NewRegistry(reqs...)
	b := NewRegistry(reversed...)

	for _, role := range account.Roles {
		if !slices.Equal(a.RequiredScopes(role), b.RequiredScopes(role)) {
			t.Errorf("%v: order changed result: %v vs %v", role, a.RequiredScopes(role), b.RequiredScopes(role))
		}
	}

	if got, want := a.RequiredScopes(account.ChatBot), []string{"chat:edit", "chat:read"}; !slices.Equal(got, want) {
		t.Errorf("RequiredScopes(ChatBot) = %v, want %v", got, want)
	}
	if got, want := a.RequiredScopes(account.Streamer), []string{"bits:read"}; !slices.Equal(got, want) {
		t.Errorf("RequiredScopes(Streamer) = %v, want %v", got, want)
	}
	if got, want := a.ScopeString(account.ChatBot), "chat:edit chat:read"; got != want {
		t.Errorf("ScopeString(ChatBot) = %q, want %q", got, want)
	}
}

func TestHasAllRequiredScopes(t *testing.T) {
	r := NewRegistry(
		Requirement{Operation: "read", Scope: "chat:read", Role: account.ChatBot},
		Requirement{Operation: "send", Scope: "chat:edit", Role: account.ChatBot},
	)

	tests := []struct {
		name    string
		role    account.Role
		granted []string
		want    bool
		missing []string
	}{
		{
			name:    "superset",
			role:    account.ChatBot,
			granted: []string{"chat:read", "chat:edit", "bits:read"},
			want:    true,
		},
		{
			name:    "exact",
			role:    account.ChatBot,
			granted: []string{"chat:edit", "chat:read"},
			want:    true,
		},
		{
			name:    "subset",
			role:    account.ChatBot,
			granted: []string{"chat:read"},
			want:    false,
			missing: []string{"chat:edit"},
		},
		{
			name:    "none granted",
			role:    account.ChatBot,
			want:    false,
			missing: []string{"chat:edit", "chat:read"},
		},
		{
			name: "role without requirements",
			role: account.Streamer,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.HasAllRequiredScopes(tt.role, tt.granted); got != tt.want {
				t.Errorf("HasAllRequiredScopes() = %v, want %v", got, tt.want)
			}
			if got := r.Missing(tt.role, tt.granted); !slices.Equal(got, tt.missing) {
				t.Errorf("Missing() = %v, want %v", got, tt.missing)
			}
		})
	}
}

func TestRequiredScopesReturnsCopy(t *testing.T) {
	r := NewRegistry(Requirement{Operation: "read", Scope: "chat:read", Role: account.ChatBot})
	got := r.RequiredScopes(account.ChatBot)
	got[0] = "mutated"
	if r.ScopeString(account.ChatBot) != "chat:read" {
		t.Error("caller mutated registry state")
	}
}

func TestOperations(t *testing.T) {
	r := NewRegistry(Defaults()...)
	if got := r.Operations(account.ChatBot, "chat:read"); !slices.Equal(got, []string{"chat.read"}) {
		t.Errorf("Operations(chat:read) = %v", got)
	}
	if got := r.Operations(account.Streamer, "chat:read"); len(got) != 0 {
		t.Errorf("streamer operations for chat:read = %v, want none", got)
	}
}

func TestDefaultsCoverBothRoles(t *testing.T) {
	r := NewRegistry(Defaults()...)
	for _, role := range account.Roles {
		if len(r.RequiredScopes(role)) == 0 {
			t.Errorf("no default scopes for %v", role)
		}
	}
}
