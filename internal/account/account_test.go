package account

import (
	"slices"
	"testing"
)

func acct(name string) Account {
	return Account{
		Name:         name,
		AccessToken:  name + "-token",
		RefreshToken: name + "-refresh",
		UserID:       name + "-id",
		Scopes:       []string{"chat:read"},
		AvatarURL:    "https://cdn.example/" + name + ".png",
	}
}

func TestSlotUpsertReplacesAndAppends(t *testing.T) {
	var s Slot
	s.Upsert(acct("alice"))
	s.Upsert(acct("bob"))

	updated := acct("alice")
	updated.AccessToken = "fresh"
	s.Upsert(updated)
	s.Upsert(updated)

	if got, want := s.Names(), []string{"bob", "alice"}; !slices.Equal(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	got, ok := s.Find("alice")
	if !ok {
		t.Fatal("Find(alice) not found")
	}
	if got.AccessToken != "fresh" {
		t.Errorf("AccessToken = %q, want %q", got.AccessToken, "fresh")
	}
}

func TestSlotRemove(t *testing.T) {
	tests := []struct {
		name       string
		accounts   []string
		active     string
		remove     string
		wantActive string
		wantWas    bool
		wantNames  []string
	}{
		{
			name:       "active account falls back to first remaining",
			accounts:   []string{"a", "b", "c"},
			active:     "b",
			remove:     "b",
			wantActive: "a",
			wantWas:    true,
			wantNames:  []string{"a", "c"},
		},
		{
			name:       "removing first active promotes next",
			accounts:   []string{"a", "b"},
			active:     "a",
			remove:     "a",
			wantActive: "b",
			wantWas:    true,
			wantNames:  []string{"b"},
		},
		{
			name:       "last account clears selection",
			accounts:   []string{"a"},
			active:     "a",
			remove:     "a",
			wantActive: "",
			wantWas:    true,
			wantNames:  []string{},
		},
		{
			name:       "inactive account leaves selection",
			accounts:   []string{"a", "b"},
			active:     "a",
			remove:     "b",
			wantActive: "a",
			wantNames:  []string{"a"},
		},
		{
			name:       "unknown name is a no-op",
			accounts:   []string{"a"},
			active:     "a",
			remove:     "zzz",
			wantActive: "a",
			wantNames:  []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Slot
			for _, n := range tt.accounts {
				s.Upsert(acct(n))
			}
			s.SetActive(tt.active)

			if was := s.Remove(tt.remove); was != tt.wantWas {
				t.Errorf("Remove() = %v, want %v", was, tt.wantWas)
			}
			if got := s.ActiveName(); got != tt.wantActive {
				t.Errorf("ActiveName() = %q, want %q", got, tt.wantActive)
			}
			if got := s.Names(); !slices.Equal(got, tt.wantNames) {
				t.Errorf("Names() = %v, want %v", got, tt.wantNames)
			}
		})
	}
}

func TestSlotActiveAccount(t *testing.T) {
	var s Slot
	if _, ok := s.ActiveAccount(); ok {
		t.Fatal("empty slot reported an active account")
	}

	s.Upsert(acct("alice"))
	s.SetActive("ghost")
	if _, ok := s.ActiveAccount(); ok {
		t.Error("stale active name resolved to an account")
	}

	s.SetActive("alice")
	got, ok := s.ActiveAccount()
	if !ok || got.Name != "alice" {
		t.Errorf("ActiveAccount() = %+v, %v", got, ok)
	}

	s.SetActive("")
	if s.Active != nil {
		t.Errorf("SetActive(\"\") left Active = %q", *s.Active)
	}
}

func TestSlotCloneIsDeep(t *testing.T) {
	var s Slot
	s.Upsert(acct("alice"))
	s.SetActive("alice")

	c := s.Clone()
	c.Accounts[0].Scopes[0] = "mutated"
	c.SetActive("other")

	if s.Accounts[0].Scopes[0] != "chat:read" {
		t.Error("clone shares scopes with original")
	}
	if s.ActiveName() != "alice" {
		t.Error("clone shares active pointer with original")
	}
}

func activeSlot(names ...string) Slot {
	var s Slot
	for _, n := range names {
		s.Upsert(acct(n))
	}
	if len(names) > 0 {
		s.SetActive(names[0])
	}
	return s
}

func TestSlotReadersWorkOnReturnedValues(t *testing.T) {
	if got := activeSlot("alice", "bob").ActiveName(); got != "alice" {
		t.Errorf("ActiveName() = %q, want alice", got)
	}
	if got, ok := activeSlot("alice").ActiveAccount(); !ok || got.Name != "alice" {
		t.Errorf("ActiveAccount() = %+v, %v", got, ok)
	}
	if _, ok := activeSlot("alice").Find("bob"); ok {
		t.Error("Find(bob) found an absent account")
	}
	if got := activeSlot("alice", "bob").Names(); !slices.Equal(got, []string{"alice", "bob"}) {
		t.Errorf("Names() = %v", got)
	}
	if got := activeSlot().Clone(); got.Accounts == nil || got.Active != nil {
		t.Errorf("Clone() of empty slot = %+v", got)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "streamer", want: Streamer},
		{in: "chatBot", want: ChatBot},
		{in: "chatbot", want: ChatBot},
		{in: "STREAMER", want: Streamer},
		{in: "moderator", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseRole(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRole(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
