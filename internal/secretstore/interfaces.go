package secretstore

import "context"

// SecretStore reads and writes the client secret.
type SecretStore interface {
	// Read returns the stored secret. Returns error if it is missing or empty.
	Read(ctx context.Context) (string, error)

	// Write persists the secret. Returns error for read-only backends.
	Write(ctx context.Context, secret string) error
}
