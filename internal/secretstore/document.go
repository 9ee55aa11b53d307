package secretstore

import (
	"context"
	"errors"
)

// Document is the part of the credentials document that holds the secret.
type Document interface {
	ClientSecret() string
	SetClientSecret(ctx context.Context, secret string) error
}

// DocumentStore keeps the client secret inside the credentials document.
type DocumentStore struct {
	doc Document
}

var _ SecretStore = (*DocumentStore)(nil)

// NewDocumentStore creates a DocumentStore backed by doc.
func NewDocumentStore(doc Document) (*DocumentStore, error) {
	if doc == nil {
		return nil, errors.New("document cannot be nil")
	}
	return &DocumentStore{doc: doc}, nil
}

// Read returns the clientSecret field. Returns error if it is empty.
func (d *DocumentStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	secret := d.doc.ClientSecret()
	if secret == "" {
		return "", errors.New("clientSecret is empty in credentials document")
	}
	return secret, nil
}

// Write replaces the clientSecret field and persists the document.
func (d *DocumentStore) Write(ctx context.Context, secret string) error {
	if secret == "" {
		return errors.New("secret cannot be empty")
	}
	return d.doc.SetClientSecret(ctx, secret)
}
