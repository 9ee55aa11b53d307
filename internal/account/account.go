// Package account holds the credential data model: roles, authorized
// accounts and the per-role slot that tracks which account is active.
//
// The types here perform no I/O. Persistence lives in credstore, which is
// the only place slots are mutated so that every change reaches disk.
package account

import "slices"

// Account is one authorized Twitch identity. Values are replaced wholesale on
// re-authorization and never edited in place.
type Account struct {
	Name         string   `json:"name"`
	AccessToken  string   `json:"token"`
	RefreshToken string   `json:"refresh"`
	UserID       string   `json:"uid"`
	Scopes       []string `json:"scopes"`
	AvatarURL    string   `json:"avatarUrl"`
}

// Clone returns a copy that shares no memory with a.
func (a Account) Clone() Account {
	a.Scopes = slices.Clone(a.Scopes)
	return a
}

// Slot is one role's authorized accounts plus the name of the active one.
//
// Active is a lookup key into Accounts, never an owner: when the referenced
// account is removed the pointer is re-derived rather than left dangling.
type Slot struct {
	Active   *string   `json:"active"`
	Accounts []Account `json:"accounts"`
}

// ActiveName returns the active account name, or "" when none is selected.
func (s Slot) ActiveName() string {
	if s.Active == nil {
		return ""
	}
	return *s.Active
}

// SetActive points the slot at name. An empty name clears the selection.
// Presence of the account is not checked; callers add it first.
func (s *Slot) SetActive(name string) {
	if name == "" {
		s.Active = nil
		return
	}
	s.Active = &name
}

// Upsert replaces any account with the same name and appends a at the end.
func (s *Slot) Upsert(a Account) {
	s.Accounts = slices.DeleteFunc(s.Accounts, func(existing Account) bool {
		return existing.Name == a.Name
	})
	s.Accounts = append(s.Accounts, a.Clone())
}

// Remove deletes the named account. If it was active, the first remaining
// account becomes active, or the selection is cleared when none remain.
// It reports whether the removed account was the active one.
func (s *Slot) Remove(name string) bool {
	s.Accounts = slices.DeleteFunc(s.Accounts, func(existing Account) bool {
		return existing.Name == name
	})

	if s.Active == nil || *s.Active != name {
		return false
	}

	if len(s.Accounts) == 0 {
		s.Active = nil
	} else {
		s.SetActive(s.Accounts[0].Name)
	}
	return true
}

// Find returns the named account.
func (s Slot) Find(name string) (Account, bool) {
	i := slices.IndexFunc(s.Accounts, func(a Account) bool { return a.Name == name })
	if i < 0 {
		return Account{}, false
	}
	return s.Accounts[i].Clone(), true
}

// ActiveAccount returns the active account. It returns false when nothing is
// selected or the selection names an account that is no longer present.
func (s Slot) ActiveAccount() (Account, bool) {
	if s.Active == nil {
		return Account{}, false
	}
	return s.Find(*s.Active)
}

// Names returns account names in authorization order.
func (s Slot) Names() []string {
	names := make([]string, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		names = append(names, a.Name)
	}
	return names
}

// Clone returns a deep copy of the slot.
func (s Slot) Clone() Slot {
	out := Slot{Accounts: make([]Account, 0, len(s.Accounts))}
	if s.Active != nil {
		out.SetActive(*s.Active)
	}
	for _, a := range s.Accounts {
		out.Accounts = append(out.Accounts, a.Clone())
	}
	return out
}
