package secretstore

import (
	"context"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name the client secret is filed under.
const KeyringService = "jolt-auth-client-secret"

// KeyringStore keeps the client secret in the OS credential store.
type KeyringStore struct {
	service string
	user    string
}

var _ SecretStore = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Read returns the secret from the keyring. Returns error if not found or empty.
func (k *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	secret, err := keyring.Get(k.service, k.user)
	if err != nil {
		return "", fmt.Errorf("reading keyring %s/%s: %w", k.service, k.user, err)
	}
	if secret == "" {
		return "", fmt.Errorf("empty secret in keyring for service %s, user %s", k.service, k.user)
	}
	return secret, nil
}

// Write stores the secret, overwriting any existing value.
func (k *KeyringStore) Write(ctx context.Context, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if secret == "" {
		return fmt.Errorf("secret cannot be empty")
	}
	return keyring.Set(k.service, k.user, secret)
}
