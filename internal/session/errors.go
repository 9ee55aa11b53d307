package session

import (
	"errors"
	"strings"

	"github.com/florianilch/jolt-auth/internal/account"
)

var (
	// ErrCSRFMismatch rejects a callback whose state is not the latest one issued.
	ErrCSRFMismatch = errors.New("authorization state does not match")

	// ErrUnknownAccount is returned when selecting an account the slot does not hold.
	ErrUnknownAccount = errors.New("unknown account")
)

// TokenExchangeError indicates the provider rejected the authorization code
// or did not answer in time.
type TokenExchangeError struct {
	Cause error
}

func (e *TokenExchangeError) Error() string {
	return "token exchange failed: " + e.Cause.Error()
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Cause
}

// UserLookupError indicates the exchange succeeded but the identity behind
// the token could not be resolved. Nothing is persisted.
type UserLookupError struct {
	Login  string
	UserID string
	Cause  error
}

func (e *UserLookupError) Error() string {
	msg := "user lookup failed"
	if e.Login != "" {
		msg += " for " + e.Login
	}
	return msg + ": " + e.Cause.Error()
}

func (e *UserLookupError) Unwrap() error {
	return e.Cause
}

// InsufficientScopeError reports required scopes the provider did not grant.
// The account is still stored; callers should warn the operator.
type InsufficientScopeError struct {
	Role    account.Role
	Missing []string
}

func (e *InsufficientScopeError) Error() string {
	return e.Role.String() + " account is missing scopes: " + strings.Join(e.Missing, " ")
}
